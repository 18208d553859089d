package auth

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestTokenRoundTrip(t *testing.T) {
	mgr, err := NewTokenManager("test-secret")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, issued, err := mgr.Issue("user-42", "john@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.ID == "" {
		t.Fatal("expected a jti claim")
	}

	claims, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Email != "john@example.com" {
		t.Fatalf("unexpected email: %s", claims.Email)
	}
	if claims.ID != issued.ID {
		t.Fatalf("jti changed across the round trip: %s vs %s", claims.ID, issued.ID)
	}
}

func TestTokenTamperedSignature(t *testing.T) {
	mgr, err := NewTokenManager("test-secret")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	token, _, err := mgr.Issue("user-42", "john@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := mgr.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	mgr, err := NewTokenManager("test-secret")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	for _, raw := range []string{"", "   ", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := mgr.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	mgr, err := NewTokenManager("test-secret", WithTTL(time.Hour), WithTokenClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, _, err := mgr.Issue("user-42", "john@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mgr.Verify(token); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := mgr.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}

	// Revocation bookkeeping still reads expired tokens.
	claims, err := mgr.DecodeUnverified(token)
	if err != nil {
		t.Fatalf("DecodeUnverified: %v", err)
	}
	if claims.Subject != "user-42" || claims.ID == "" {
		t.Fatalf("unexpected unverified claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer, err := NewTokenManager("secret-one")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	verifier, err := NewTokenManager("secret-two")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	token, _, err := issuer.Issue("user-42", "john@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
