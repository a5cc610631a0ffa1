//go:build integration
// +build integration

package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pacestacks/authkit/store"
)

// Runs against a real PostgreSQL, e.g.
//
//	docker run -p 5432:5432 -e POSTGRES_PASSWORD=pg postgres:16
//	PG_TEST_URL=postgres://postgres:pg@localhost:5432/postgres go test -tags integration ./store/pgstore/
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("PG_TEST_URL")
	if dsn == "" {
		t.Skip("PG_TEST_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New failed: %v", err)
	}
	t.Cleanup(pool.Close)

	s := NewStore(pool)
	if err := s.CreateSchema(ctx); err != nil {
		t.Fatalf("CreateSchema failed: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "TRUNCATE refresh_tokens")
	})

	return s
}

func TestPostgresRoundTrip(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	rec := store.Record{
		TokenHash: "hash-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.FindByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("FindByHash failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Fatalf("UserID = %q, want user-1", got.UserID)
	}

	if _, err := s.FindByHash(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresDelete(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	rec := store.Record{TokenHash: "hash-2", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.Delete(ctx, "hash-2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.FindByHash(ctx, "hash-2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "hash-2"); err != nil {
		t.Fatalf("repeat Delete failed: %v", err)
	}
}

func TestPostgresDeleteAllForUser(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	for _, hash := range []string{"a", "b"} {
		rec := store.Record{TokenHash: hash, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	other := store.Record{TokenHash: "c", UserID: "user-2", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.Save(ctx, other); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.DeleteAllForUser(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteAllForUser failed: %v", err)
	}

	for _, hash := range []string{"a", "b"} {
		if _, err := s.FindByHash(ctx, hash); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected %q gone, got %v", hash, err)
		}
	}
	if _, err := s.FindByHash(ctx, "c"); err != nil {
		t.Fatalf("user-2 record must survive, got %v", err)
	}
}
