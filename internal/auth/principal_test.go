package auth

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "client", "provider", "reviewer", "proposal_manager", "writer"} {
		if _, err := ParseRole(valid); err != nil {
			t.Fatalf("ParseRole(%q): %v", valid, err)
		}
	}
	if r, err := ParseRole("  Admin "); err != nil || r != RoleAdmin {
		t.Fatalf("ParseRole normalization = %q, %v", r, err)
	}
	if _, err := ParseRole("superuser"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown role err = %v, want ErrInvalidInput", err)
	}
}

func TestParseAccountType(t *testing.T) {
	for _, valid := range []string{"client", "provider", "both"} {
		if _, err := ParseAccountType(valid); err != nil {
			t.Fatalf("ParseAccountType(%q): %v", valid, err)
		}
	}
	if _, err := ParseAccountType("hybrid"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown account type err = %v, want ErrInvalidInput", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password verified")
	}
}
