package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"authgate.org/internal/ids"
)

const pgUniqueViolation = "23505"

var _ UserStore = (*PGUserStore)(nil)
var _ RevocationStore = (*PGRevocationStore)(nil)

// PGUserStore implements UserStore on PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, age, role) values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Email, u.PasswordHash, nullableAge(u.Age), string(u.Role),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, age, role, created_at, updated_at from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, age, role, created_at, updated_at from users where email=$1`, email)
	return scanUser(row)
}

func (s *PGUserStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, email, password_hash, age, role, created_at, updated_at from users order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u    User
		age  sql.NullInt64
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &age, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if age.Valid {
		u.Age = int(age.Int64)
	}
	u.Role = Role(role)
	return &u, nil
}

func nullableAge(age int) any {
	if age == 0 {
		return nil
	}
	return age
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PGRevocationStore implements RevocationStore on PostgreSQL. The
// on-conflict clause makes Revoke idempotent; row deletes and lookups on
// the same token id serialize inside the database.
type PGRevocationStore struct {
	db *sql.DB
}

func NewPGRevocationStore(db *sql.DB) *PGRevocationStore {
	return &PGRevocationStore{db: db}
}

func (s *PGRevocationStore) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`insert into token_revocations(token_id, user_id, expires_at, revoked_at)
		 values($1,$2,$3,$4)
		 on conflict (token_id) do nothing`,
		tokenID, userID, expiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

func (s *PGRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from token_revocations where token_id=$1)`, tokenID,
	).Scan(&revoked)
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func (s *PGRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from token_revocations where expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
