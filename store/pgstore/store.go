// Package pgstore persists refresh-token records in PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pacestacks/authkit/store"
)

// Schema is the table expected by the store. Applied by CreateSchema or by
// the host application's own migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
    token_hash TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS refresh_tokens_user_id_idx ON refresh_tokens (user_id);
`

// DBTX is the subset of pgx behavior the store needs; satisfied by
// *pgxpool.Pool, *pgx.Conn, and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed refresh-token store.
type Store struct {
	db DBTX
}

// NewStore binds a Store to the given connection or pool.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// CreateSchema applies Schema. Safe to call repeatedly.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Save inserts one row per record. The digest is the primary key; collisions
// would require two identical 64-byte random tokens, so conflicts are
// treated as plain errors rather than handled.
func (s *Store) Save(ctx context.Context, rec store.Record) error {
	const query = `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.db.Exec(ctx, query, rec.TokenHash, rec.UserID, rec.ExpiresAt); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// FindByHash performs an exact match on the stored digest.
func (s *Store) FindByHash(ctx context.Context, tokenHash string) (*store.Record, error) {
	const query = `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	rec := &store.Record{TokenHash: tokenHash}
	err := s.db.QueryRow(ctx, query, tokenHash).Scan(&rec.UserID, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return rec, nil
}

// Delete removes a single record; absent records are not an error.
func (s *Store) Delete(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`
	if _, err := s.db.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every record owned by the user.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	if _, err := s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}
