package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAccessToken(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"
	at, err := NewAccessToken(secret, 42, "ATTENDEE", 15)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if at.Token == "" {
		t.Fatalf("expected non-empty token")
	}
	if until := time.Until(at.Exp); until < 14*time.Minute || until > 16*time.Minute {
		t.Fatalf("unexpected expiry %v", at.Exp)
	}

	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("token does not parse back: %v", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type %T", tok.Claims)
	}
	if claims["role"] != "ATTENDEE" {
		t.Fatalf("expected role claim ATTENDEE, got %v", claims["role"])
	}
	if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
		t.Fatalf("expected sub 42, got %v", claims["sub"])
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	t.Parallel()

	rt, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("expected 96 hex chars, got %d", len(rt.Raw))
	}
	h1 := HashRefreshRaw(rt.Raw)
	h2 := HashRefreshRaw(rt.Raw)
	if h1 != h2 {
		t.Fatalf("hash must be deterministic")
	}
	if h1 == rt.Raw {
		t.Fatalf("hash must differ from raw token")
	}

	other, err := NewRefreshToken(30)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if HashRefreshRaw(other.Raw) == h1 {
		t.Fatalf("different tokens must not collide")
	}
}
