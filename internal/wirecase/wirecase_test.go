package wirecase

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCamelizeJSON_RoundTrip(t *testing.T) {
	raw := []byte(`{"room_id":"abc","ready_state":{"p1":true}}`)

	got, err := CamelizeJSON(raw)
	if err != nil {
		t.Fatalf("CamelizeJSON: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	want := map[string]any{
		"roomId":     "abc",
		"readyState": map[string]any{"p1": true},
	}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("want %+v, got %+v", want, m)
	}
}

func TestCamelizeJSON_NestedArraysKeepOrder(t *testing.T) {
	raw := []byte(`{"player_list":[{"player_id":"p1"},{"player_id":"p2"}],"count":2}`)

	got, err := CamelizeJSON(raw)
	if err != nil {
		t.Fatalf("CamelizeJSON: %v", err)
	}

	var m struct {
		PlayerList []struct {
			PlayerID string `json:"playerId"`
		} `json:"playerList"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(m.PlayerList) != 2 || m.PlayerList[0].PlayerID != "p1" || m.PlayerList[1].PlayerID != "p2" {
		t.Fatalf("array order not preserved: %+v", m.PlayerList)
	}
	if m.Count != 2 {
		t.Fatalf("leaf value changed: %d", m.Count)
	}
}

func TestCamelizeJSON_LeavesScalarsAlone(t *testing.T) {
	// Values must never be rewritten, only keys. "in_room" is a value and
	// stays snake on purpose.
	raw := []byte(`{"player_state":{"status":"in_room","room_id":"R1"}}`)

	got, err := CamelizeJSON(raw)
	if err != nil {
		t.Fatalf("CamelizeJSON: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	ps, ok := m["playerState"].(map[string]any)
	if !ok {
		t.Fatalf("playerState missing: %+v", m)
	}
	if ps["status"] != "in_room" {
		t.Fatalf("value was rewritten: %+v", ps)
	}
	if ps["roomId"] != "R1" {
		t.Fatalf("nested key not rewritten: %+v", ps)
	}
}

func TestCamelizeJSON_NonObjectRoot(t *testing.T) {
	for _, raw := range []string{`[1,2,3]`, `"plain"`, `42`, `null`} {
		got, err := CamelizeJSON([]byte(raw))
		if err != nil {
			t.Fatalf("CamelizeJSON(%s): %v", raw, err)
		}
		var a, b any
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(got, &b); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("non-object root changed: %s -> %s", raw, got)
		}
	}
}

func TestCamelizeJSON_BadJSON(t *testing.T) {
	if _, err := CamelizeJSON([]byte(`{"oops"`)); err == nil {
		t.Fatalf("expected error for truncated JSON")
	}
}

func TestCamelize_AlreadyCamelKeysUnchanged(t *testing.T) {
	v := Camelize(map[string]any{"roomId": "abc"})
	m, ok := v.(map[string]any)
	if !ok || m["roomId"] != "abc" {
		t.Fatalf("camel key should pass through: %+v", v)
	}
}
