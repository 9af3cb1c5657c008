package auth

import (
	"errors"
	"testing"
	"time"
)

func testAccount() *Account {
	return &Account{
		ID:     "acct-1",
		Email:  "donor@example.com",
		Role:   RoleDonor,
		Active: true,
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("unit-test-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, exp, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "donor@example.com" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.AccountID != "acct-1" {
		t.Fatalf("unexpected account id: %s", claims.AccountID)
	}
	if claims.Role != RoleDonor {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
}

func TestVerifyZeroTTLTokenExpired(t *testing.T) {
	frozen := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("unit-test-secret",
		WithTTL(0),
		WithClock(func() time.Time { return frozen }),
	)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, _, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestVerifyExpiryAfterClockAdvance(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	issuer, err := NewTokenIssuer("unit-test-secret",
		WithTTL(30*time.Minute),
		WithClock(clock),
	)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, _, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("token should be valid immediately: %v", err)
	}

	now = now.Add(31 * time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken after 31 minutes, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret-a")
	other, _ := NewTokenIssuer("secret-b")

	token, _, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, _ := NewTokenIssuer("unit-test-secret")
	for _, raw := range []string{"", "not.a.jwt", "a.b"} {
		if _, err := issuer.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
