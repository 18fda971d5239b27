package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Fatalf("correct password must verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatalf("wrong password must not verify")
	}
}

func TestPasswordCostFallback(t *testing.T) {
	t.Parallel()

	// An out-of-range cost falls back to the bcrypt default rather
	// than erroring out.
	hash, err := HashPassword("s3cret", 99)
	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost parse: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost %d, got %d", bcrypt.DefaultCost, cost)
	}
}
