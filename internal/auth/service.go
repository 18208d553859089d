package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"authgate.org/internal/obs"
)

// Service implements the credential and session-authorization operations:
// registration, login, logout (revocation), and the per-request access
// guard. It holds no mutable state of its own; all state lives in the
// injected stores.
type Service struct {
	users   UserStore
	revoked RevocationStore
	tokens  *TokenManager
	hasher  PasswordHasher
	now     func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithPasswordHasher overrides the default bcrypt hasher.
func WithPasswordHasher(h PasswordHasher) ServiceOption {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the auth subsystem together.
func NewService(users UserStore, revoked RevocationStore, tokens *TokenManager, opts ...ServiceOption) *Service {
	s := &Service{
		users:   users,
		revoked: revoked,
		tokens:  tokens,
		hasher:  BcryptHasher{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is the result of a successful registration or login.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Principal   Principal
}

// RegisterInput carries the fields accepted by Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Age      int
}

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	passwordSpecial = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// Validate normalizes and checks the registration fields. Violations are
// wrapped in ErrInvalidInput with a field-specific message.
func (in *RegisterInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if n := len(in.Name); n < 2 || n > 100 {
		return fmt.Errorf("%w: name must be between 2 and 100 characters", ErrInvalidInput)
	}
	if in.Email == "" || len(in.Email) > 255 || !emailPattern.MatchString(in.Email) {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if n := len(in.Password); n < 8 || n > 128 {
		return fmt.Errorf("%w: password must be between 8 and 128 characters", ErrInvalidInput)
	}
	if !passwordUpper.MatchString(in.Password) ||
		!passwordLower.MatchString(in.Password) ||
		!passwordDigit.MatchString(in.Password) ||
		!passwordSpecial.MatchString(in.Password) {
		return fmt.Errorf("%w: password needs upper, lower, digit and special characters", ErrInvalidInput)
	}
	if in.Age != 0 && (in.Age < 1 || in.Age > 150) {
		return fmt.Errorf("%w: age must be between 1 and 150", ErrInvalidInput)
	}
	return nil
}

// Register creates a member account and issues its first session token.
// Duplicate emails fail with ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if err := in.Validate(); err != nil {
		return Session{}, err
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return Session{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}
	user := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Age:          in.Age,
		Role:         RoleMember,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Session{}, err
	}
	return s.openSession(user)
}

// Login authenticates credentials and issues a session token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrUnauthorized
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if !s.hasher.Compare(password, user.PasswordHash) {
		return Session{}, ErrUnauthorized
	}
	return s.openSession(user)
}

func (s *Service) openSession(user *User) (Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		Principal:   PrincipalFromUser(user),
	}, nil
}

// Logout revokes the presented token by its jti until the token's own
// expiry. The claims are decoded without signature validation because the
// caller already passed the access guard; the decode only supplies
// revocation bookkeeping, never authorization.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.DecodeUnverified(token)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	obs.TokenRevoked()
	return nil
}

// Authenticate is the access guard: verify signature and expiry, check
// revocation, resolve the principal. Each rejection keeps its own
// sentinel for internal accounting while the HTTP layer collapses them
// into one uniform 401.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	if strings.TrimSpace(token) == "" {
		return Principal{}, ErrNoToken
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: without a revocation answer the token is not honored.
		return Principal{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if revoked {
		return Principal{}, ErrTokenRevoked
	}
	user, err := s.users.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnknownSubject
		}
		return Principal{}, err
	}
	return PrincipalFromUser(user), nil
}

// User returns a single account as a principal projection.
func (s *Service) User(ctx context.Context, id string) (Principal, error) {
	user, err := s.users.Find(ctx, id)
	if err != nil {
		return Principal{}, err
	}
	return PrincipalFromUser(user), nil
}

// Users lists all accounts as principal projections.
func (s *Service) Users(ctx context.Context) ([]Principal, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Principal, 0, len(users))
	for _, u := range users {
		out = append(out, PrincipalFromUser(u))
	}
	return out, nil
}

// PurgeExpired evicts dead revocation entries once.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.revoked.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	obs.RevokedPurged(n)
	return n, nil
}

// StartPurgeLoop evicts expired revocation entries on a fixed interval
// until the context is canceled. Purging is time-driven, not
// request-driven.
func (s *Service) StartPurgeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.PurgeExpired(ctx)
				if err != nil {
					obs.LogRequest(map[string]any{
						"ts":    time.Now().UTC().Format(time.RFC3339Nano),
						"level": "error",
						"msg":   "revocation purge failed",
						"error": err.Error(),
					})
					continue
				}
				if n > 0 {
					obs.LogRequest(map[string]any{
						"ts":     time.Now().UTC().Format(time.RFC3339Nano),
						"level":  "info",
						"msg":    "revocation purge complete",
						"purged": n,
					})
				}
			}
		}
	}()
}
