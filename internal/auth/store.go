package auth

import (
	"context"
	"time"
)

// UserStore manages account records. FindByEmail must return the password
// hash so login can compare credentials.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// RevocationStore records revoked token ids until their natural expiry.
// Tokens are otherwise stateless, so this store is the only veto that
// makes logout effective.
//
// Implementations must stay correct under concurrent Revoke, IsRevoked
// and PurgeExpired calls: a revocation visible to one caller must never
// be dropped by a concurrent purge before its ExpiresAt.
type RevocationStore interface {
	// Revoke is an idempotent insert; revoking an already-revoked token
	// is a no-op success.
	Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error

	// IsRevoked is an O(1) membership check, consulted on every
	// authenticated request between signature verification and principal
	// resolution.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// PurgeExpired deletes entries with ExpiresAt before now and returns
	// how many were removed. It never touches still-valid revocations.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
