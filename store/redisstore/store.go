// Package redisstore persists refresh-token records in Redis with a native
// TTL per record and a per-user index set for logout-everywhere.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pacestacks/authkit/store"
)

// Store is a Redis-backed refresh-token store. Keys:
//
//	<prefix>:t:<tokenHash>  — hash with uid and exp fields, TTL = expiry
//	<prefix>:u:<userID>     — set of token hashes owned by the user
//
// The index set may retain hashes of naturally-expired tokens; they resolve
// to nothing on lookup and are dropped on the next DeleteAllForUser.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a Store on the given client. prefix namespaces all keys;
// it defaults to "rt" when empty.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "rt"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) tokenKey(tokenHash string) string {
	return s.prefix + ":t:" + tokenHash
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save persists the record with a TTL matching its expiry and indexes it
// under the owning user.
func (s *Store) Save(ctx context.Context, rec store.Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("record already expired")
	}

	tokenKey := s.tokenKey(rec.TokenHash)
	userKey := s.userKey(rec.UserID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tokenKey, "uid", rec.UserID, "exp", rec.ExpiresAt.Unix())
		pipe.Expire(ctx, tokenKey, ttl)
		pipe.SAdd(ctx, userKey, rec.TokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return nil
}

// FindByHash returns the record for the given token hash, or
// store.ErrNotFound when Redis has already evicted it.
func (s *Store) FindByHash(ctx context.Context, tokenHash string) (*store.Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.tokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}

	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh record: %v", err)
	}

	return &store.Record{
		TokenHash: tokenHash,
		UserID:    fields["uid"],
		ExpiresAt: time.Unix(exp, 0),
	}, nil
}

// Delete removes a single record and its index entry. Deleting an absent
// record is not an error.
func (s *Store) Delete(ctx context.Context, tokenHash string) error {
	uid, err := s.redis.HGet(ctx, s.tokenKey(tokenHash), "uid").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey(tokenHash))
		pipe.SRem(ctx, s.userKey(uid), tokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return nil
}

// DeleteAllForUser removes every record indexed under the user. Not fully
// atomic: a token saved between the SMembers read and the pipelined delete
// survives until its natural expiry or the next call.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	hashes, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, h := range hashes {
			pipe.Del(ctx, s.tokenKey(h))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return nil
}
