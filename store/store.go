// Package store declares the persistence contract for refresh-token records
// and the record model shared by all backends.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by FindByHash when no record matches. A miss is
// normal control flow, not a failure: the engine translates it to an
// invalid-refresh outcome at the boundary.
var ErrNotFound = errors.New("refresh token not found")

// ErrUnavailable wraps backend connectivity failures so callers can
// distinguish "token absent" from "store down".
var ErrUnavailable = errors.New("refresh token store unavailable")

// Record is the persisted form of a refresh token. TokenHash is the hex
// SHA-256 digest of the raw token; the raw value itself is never written to
// storage, so a leaked store does not yield usable tokens.
type Record struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at the given time.
// Backends are not required to purge expired rows, so callers must check.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store is implemented by the redisstore, mongostore, and pgstore backends.
//
// Save must allow any number of live records per user: each login or
// registration from another device adds one, and they are independent.
// Delete and DeleteAllForUser are idempotent.
type Store interface {
	Save(ctx context.Context, rec Record) error
	FindByHash(ctx context.Context, tokenHash string) (*Record, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}
