// Package wirecase converts server JSON from the wire naming convention
// (snake_case keys) to the client convention (lowerCamelCase keys). The
// rewrite is total: every key at every nesting depth is converted, arrays
// keep their order, and non-object leaves pass through untouched.
package wirecase

import (
	"bytes"
	"encoding/json"

	"github.com/iancoleman/strcase"
)

// Camelize rewrites the keys of a decoded JSON value in place of a copy.
func Camelize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[strcase.ToLowerCamel(k)] = Camelize(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = Camelize(child)
		}
		return out
	default:
		return v
	}
}

// CamelizeJSON applies Camelize to a raw JSON document and re-encodes it.
func CamelizeJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // keep numeric values bit-exact across the rewrite
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(Camelize(v))
}
