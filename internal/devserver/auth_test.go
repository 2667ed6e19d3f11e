package devserver

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	a := NewAuthenticator("test-secret")

	token, err := a.Mint("player-42")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	playerID, err := a.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if playerID != "player-42" {
		t.Fatalf("want player-42, got %q", playerID)
	}
}

func TestAuthenticator_RejectsWrongSecret(t *testing.T) {
	token, err := NewAuthenticator("secret-a").Mint("player-42")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := NewAuthenticator("secret-b").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticator_RejectsExpired(t *testing.T) {
	a := NewAuthenticator("test-secret")

	past := time.Now().Add(-time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "player-42",
		IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(past),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticator_RejectsGarbageAndMissingSubject(t *testing.T) {
	a := NewAuthenticator("test-secret")

	if _, err := a.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for garbage, got %v", err)
	}

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken without subject, got %v", err)
	}
}
