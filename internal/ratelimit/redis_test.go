package ratelimit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client), mr
}

func TestRedisLimiterBreach(t *testing.T) {
	l, _ := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "client-a", DefaultTiers)
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("request #%d must pass", i+1)
		}
	}

	d, err := l.Allow(ctx, "client-a", DefaultTiers)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if d.Allowed {
		t.Fatal("4th request must be rejected")
	}
	if d.Tier.Name != "short" {
		t.Fatalf("expected the short tier, got %s", d.Tier.Name)
	}
	if !strings.Contains(d.RetryHint, "only 3 allowed per 1 second") {
		t.Fatalf("unexpected retry hint: %s", d.RetryHint)
	}
}

func TestRedisLimiterBreachDoesNotChargeLaterTiers(t *testing.T) {
	l, mr := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Allow(ctx, "client-a", DefaultTiers)
	}

	if got, _ := mr.Get("rl:short:client-a"); got != "4" {
		t.Fatalf("short counter = %q, want 4", got)
	}
	if got, _ := mr.Get("rl:medium:client-a"); got != "3" {
		t.Fatalf("medium counter = %q, want 3", got)
	}
	if got, _ := mr.Get("rl:long:client-a"); got != "3" {
		t.Fatalf("long counter = %q, want 3", got)
	}
}

func TestRedisLimiterWindowReset(t *testing.T) {
	l, mr := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Allow(ctx, "client-a", DefaultTiers)
	}
	mr.FastForward(time.Second)

	d, err := l.Allow(ctx, "client-a", DefaultTiers)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !d.Allowed {
		t.Fatal("window elapsed, request must pass")
	}
	if got, _ := mr.Get("rl:short:client-a"); got != "1" {
		t.Fatalf("short counter = %q, want 1", got)
	}
}

func TestRedisLimiterIndependentKeys(t *testing.T) {
	l, _ := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Allow(ctx, "client-a", DefaultTiers)
	}
	d, err := l.Allow(ctx, "client-b", DefaultTiers)
	if err != nil || !d.Allowed {
		t.Fatalf("independent client rejected: %+v, %v", d, err)
	}
}

func TestRedisLimiterFailsClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := NewRedisLimiter(client)
	mr.Close()

	if _, err := l.Allow(context.Background(), "client-a", DefaultTiers); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
