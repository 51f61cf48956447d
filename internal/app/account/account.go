/*
Package account provides the user account store.

Handlers depend on the Store interface, so tests can substitute an in-memory
fake; the production implementation runs on the pgx connection pool.
*/
package account

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulsechat/internal/app/db"
)

// ErrNotFound is returned when no account matches the given username.
var ErrNotFound = errors.New("account not found")

// ErrUsernameTaken is returned when creating an account with a taken name.
var ErrUsernameTaken = errors.New("username already taken")

// User is one account row.
type User struct {
	ID           string
	Username     string
	PasswordHash string
}

// Store is the account persistence interface the handlers depend on.
type Store interface {
	// GetByUsername returns the account for username or ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Create inserts a new account and returns it, or ErrUsernameTaken when
	// the username is already in use.
	Create(ctx context.Context, username, passwordHash string) (*User, error)

	// UpdatePassword replaces the stored hash for username, or returns
	// ErrNotFound when the account does not exist.
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

// PGStore is the PostgreSQL-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// GetByUsername implements Store.
func (s *PGStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	const query = `SELECT id, username, password_hash FROM users WHERE username = $1`

	var u User
	err := s.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

// Create implements Store.
func (s *PGStore) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	const query = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash`

	var u User
	err := s.pool.QueryRow(ctx, query, username, passwordHash).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return &u, nil
}

// UpdatePassword implements Store.
func (s *PGStore) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = now() WHERE username = $2`

	tag, err := s.pool.Exec(ctx, query, passwordHash, username)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
