package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")

	// ErrUnauthorized covers bad login credentials. Callers must not
	// disclose whether the email or the password was wrong.
	ErrUnauthorized = errors.New("auth: unauthorized")

	// Guard rejection reasons. All of them surface to clients as one
	// uniform 401; they stay distinguishable for logs and metrics.
	ErrNoToken        = errors.New("auth: missing bearer token")
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrTokenRevoked   = errors.New("auth: token revoked")
	ErrUnknownSubject = errors.New("auth: unknown token subject")

	// ErrStoreUnavailable marks a backing-store outage. Authentication
	// fails closed on it: a revoked token must never be honored because
	// the revocation store could not be reached.
	ErrStoreUnavailable = errors.New("auth: store unavailable")
)
