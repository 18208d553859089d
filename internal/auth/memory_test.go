package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryRevocationIdempotent(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	if err := store.Revoke(ctx, "jti-1", "user-1", exp); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	first := store.entries["jti-1"].RevokedAt

	if err := store.Revoke(ctx, "jti-1", "user-1", exp.Add(time.Hour)); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}
	if got := store.entries["jti-1"].RevokedAt; !got.Equal(first) {
		t.Fatal("repeated revocation must keep the original RevokedAt")
	}

	ok, err := store.IsRevoked(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("IsRevoked = %v, %v", ok, err)
	}
	ok, err = store.IsRevoked(ctx, "jti-2")
	if err != nil || ok {
		t.Fatalf("unknown token: IsRevoked = %v, %v", ok, err)
	}
}

func TestMemoryRevocationPurgeExactSet(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.Revoke(ctx, "expired-1", "u", now.Add(-time.Second))
	store.Revoke(ctx, "expired-2", "u", now.Add(-time.Hour))
	store.Revoke(ctx, "boundary", "u", now)
	store.Revoke(ctx, "live", "u", now.Add(time.Second))

	n, err := store.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged, got %d", n)
	}
	// Expiry exactly at the cutoff survives; strictly-before is purged.
	for _, id := range []string{"boundary", "live"} {
		if ok, _ := store.IsRevoked(ctx, id); !ok {
			t.Errorf("%s must survive the purge", id)
		}
	}
	for _, id := range []string{"expired-1", "expired-2"} {
		if ok, _ := store.IsRevoked(ctx, id); ok {
			t.Errorf("%s must be purged", id)
		}
	}
}

func TestMemoryRevocationConcurrentAccess(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("jti-%d-%d", i, j)
				store.Revoke(ctx, id, "u", exp)
				store.IsRevoked(ctx, id)
				store.PurgeExpired(ctx, time.Now())
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 400 {
		t.Fatalf("expected 400 live entries, got %d", store.Len())
	}
}

func TestMemoryUserStore(t *testing.T) {
	store := NewMemoryUserStore()
	ctx := context.Background()

	u := &User{Name: "John", Email: "John@Example.com", PasswordHash: "h", Role: RoleMember}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("Create must assign an id")
	}

	dup := &User{Name: "Jane", Email: "john@example.com", PasswordHash: "h", Role: RoleMember}
	if err := store.Create(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.Find(ctx, u.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Email != "john@example.com" {
		t.Fatalf("email must be stored lowercased, got %s", got.Email)
	}

	if _, err := store.Find(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Mutating a returned copy must not leak into the store.
	got.Name = "Changed"
	again, _ := store.Find(ctx, u.ID)
	if again.Name != "John" {
		t.Fatal("Find must return a copy")
	}

	second := &User{Name: "Jane", Email: "jane@example.com", PasswordHash: "h", Role: RoleAdmin}
	if err := store.Create(ctx, second); err != nil {
		t.Fatalf("Create: %v", err)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 users, got %d", len(list))
	}
	if list[0].ID > list[1].ID {
		t.Fatal("List must be sorted by id")
	}
}
