// Package mongostore persists refresh-token records in a MongoDB collection
// shaped like {token, userId, expiresAt}.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pacestacks/authkit/store"
)

const defaultCollection = "refresh_tokens"

type tokenDoc struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"userId"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Store is a MongoDB-backed refresh-token store.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to uri and returns a Store over db/coll. coll defaults to
// "refresh_tokens" when empty.
func New(ctx context.Context, uri, db, coll string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return NewWithClient(client, db, coll), nil
}

// NewWithClient wraps an existing client, for callers that share one
// connection pool across stores.
func NewWithClient(client *mongo.Client, db, coll string) *Store {
	if coll == "" {
		coll = defaultCollection
	}
	return &Store{client: client, coll: client.Database(db).Collection(coll)}
}

// Close disconnects the underlying client. Only call it when the Store owns
// the client, i.e. it came from New rather than NewWithClient.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the token lookup index and a TTL index that lets
// MongoDB eventually reap expired rows. Lookup correctness never depends on
// the reaper; FindByHash callers still check expiry themselves.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Save inserts one document per record. No uniqueness constraint: a user
// accumulates one document per live session.
func (s *Store) Save(ctx context.Context, rec store.Record) error {
	_, err := s.coll.InsertOne(ctx, tokenDoc{
		Token:     rec.TokenHash,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// FindByHash performs an exact match on the stored digest.
func (s *Store) FindByHash(ctx context.Context, tokenHash string) (*store.Record, error) {
	var doc tokenDoc
	err := s.coll.FindOne(ctx, bson.M{"token": tokenHash}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return &store.Record{
		TokenHash: doc.Token,
		UserID:    doc.UserID,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

// Delete removes a single record; absent records are not an error.
func (s *Store) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"token": tokenHash}); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every record owned by the user.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}
