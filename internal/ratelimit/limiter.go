// Package ratelimit implements the tiered fixed-window limiter applied in
// front of the access guard. Each tier is an independent capacity/window
// pair; a client is constrained by every tier of a route's tier set at
// once.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrStoreUnavailable marks a limiter backing-store outage. Requests fail
// closed on it.
var ErrStoreUnavailable = errors.New("ratelimit: store unavailable")

// Tier is an independent capacity/window pair.
type Tier struct {
	Name     string
	Capacity int
	Window   time.Duration
}

// DefaultTiers guard every route. Order matters: tiers are evaluated in
// declaration order and the first breached tier wins.
var DefaultTiers = []Tier{
	{Name: "short", Capacity: 3, Window: time.Second},
	{Name: "medium", Capacity: 20, Window: 10 * time.Second},
	{Name: "long", Capacity: 100, Window: time.Minute},
}

// OverrideShort returns the default tier set with the leading short tier
// replaced by a stricter route-specific tier. The override supersedes the
// short tier, it does not add to it.
func OverrideShort(override Tier) []Tier {
	out := make([]Tier, len(DefaultTiers))
	copy(out, DefaultTiers)
	out[0] = override
	return out
}

// Decision is the outcome of admitting one request.
type Decision struct {
	Allowed   bool
	Tier      Tier   // breached tier when rejected
	RetryHint string // human-readable wait recommendation
}

// Limiter admits or rejects a request for a client key across a tier set.
type Limiter interface {
	Allow(ctx context.Context, key string, tiers []Tier) (Decision, error)
}

// retryHint renders the breached tier using the largest whole unit of its
// window: hours, else minutes, else seconds.
func retryHint(t Tier) string {
	return fmt.Sprintf("too many requests: only %d allowed per %s, please wait and retry",
		t.Capacity, displayWindow(t.Window))
}

func displayWindow(window time.Duration) string {
	seconds := int((window + time.Second - 1) / time.Second)
	switch {
	case seconds >= 3600:
		return plural(seconds/3600, "hour")
	case seconds >= 60:
		return plural(seconds/60, "minute")
	default:
		return plural(seconds, "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

type window struct {
	start  time.Time
	count  int
	length time.Duration
}

// MemoryLimiter keeps one live counter per (key, tier) pair under a single
// mutex, which linearizes decisions per key.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// MemoryOption configures MemoryLimiter behavior.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewMemoryLimiter constructs an empty limiter.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow evaluates the tiers in declaration order: roll the window if it
// elapsed, increment, then check. Evaluation stops at the first breached
// tier, so tiers after the breach are not charged for the rejected
// request.
func (l *MemoryLimiter) Allow(ctx context.Context, key string, tiers []Tier) (Decision, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range tiers {
		k := key + "|" + t.Name
		w := l.windows[k]
		if w == nil || now.Sub(w.start) >= t.Window {
			w = &window{start: now, length: t.Window}
			l.windows[k] = w
		}
		w.count++
		if w.count > t.Capacity {
			return Decision{Tier: t, RetryHint: retryHint(t)}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

// Count reports the live counter for a (key, tier) pair. Test hook.
func (l *MemoryLimiter) Count(key string, tier Tier) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.windows[key+"|"+tier.Name]
	if w == nil || l.now().Sub(w.start) >= tier.Window {
		return 0
	}
	return w.count
}

// StartSweep drops stale windows on a fixed interval until the context is
// canceled, keeping the map bounded by active clients.
func (l *MemoryLimiter) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := l.now()
				l.mu.Lock()
				for k, w := range l.windows {
					if now.Sub(w.start) >= w.length {
						delete(l.windows, k)
					}
				}
				l.mu.Unlock()
			}
		}
	}()
}
