// Package postgres provides a PostgreSQL-backed implementation of
// profile.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/socialsync/pkg/profile"
)

var _ profile.Store = (*Store)(nil)

// Store implements profile.Store on top of a profiles table.
//
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn
// and runs Migrate to ensure the profiles table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("profile store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("profile store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("profile store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// NewStoreWithPool wraps an existing pool, running Migrate on it. Used when
// sharing a pool with other stores.
func NewStoreWithPool(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("profile store: migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

const ddlProfiles = `
CREATE TABLE IF NOT EXISTS profiles (
    email          TEXT         PRIMARY KEY,
    password_hash  TEXT         NOT NULL,
    salt           TEXT         NOT NULL,
    display_name   TEXT         NOT NULL DEFAULT '',
    taste_summary  TEXT         NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate creates or ensures the profiles table exists. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlProfiles); err != nil {
		return fmt.Errorf("profile migrate: %w", err)
	}
	return nil
}

// Create implements profile.Store. Emails are normalised to lowercase; a
// duplicate email maps the unique-violation error to profile.ErrExists.
func (s *Store) Create(ctx context.Context, email, password, displayName string) (*profile.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("profile store: create: email must not be empty")
	}

	salt, err := profile.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("profile store: create: %w", err)
	}
	hash := profile.HashPassword(salt, password)

	const q = `
		INSERT INTO profiles (email, password_hash, salt, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING email, password_hash, salt, display_name, taste_summary, created_at, updated_at`

	p, err := scanProfile(s.pool.QueryRow(ctx, q, email, hash, salt, displayName))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, profile.ErrExists
		}
		return nil, fmt.Errorf("profile store: create: %w", err)
	}
	return p, nil
}

// Get implements profile.Store, returning (nil, nil) for an unknown email.
func (s *Store) Get(ctx context.Context, email string) (*profile.Profile, error) {
	const q = `
		SELECT email, password_hash, salt, display_name, taste_summary, created_at, updated_at
		FROM   profiles
		WHERE  email = $1`

	p, err := scanProfile(s.pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile store: get: %w", err)
	}
	return p, nil
}

// Authenticate implements profile.Store. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*profile.Profile, error) {
	p, err := s.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("profile store: authenticate: %w", err)
	}
	if p == nil || !profile.VerifyPassword(p.Salt, p.PasswordHash, password) {
		return nil, profile.ErrInvalidCredentials
	}
	return p, nil
}

// SetTasteSummary implements profile.Store. A write for an unknown email
// affects zero rows and is not an error.
func (s *Store) SetTasteSummary(ctx context.Context, email, summary string) error {
	const q = `
		UPDATE profiles
		SET    taste_summary = $2, updated_at = now()
		WHERE  email = $1`

	if _, err := s.pool.Exec(ctx, q, strings.ToLower(strings.TrimSpace(email)), summary); err != nil {
		return fmt.Errorf("profile store: set taste summary: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	var p profile.Profile
	err := row.Scan(&p.Email, &p.PasswordHash, &p.Salt, &p.DisplayName, &p.TasteSummary, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
