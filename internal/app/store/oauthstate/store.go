// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// State is a pending OIDC authorization: the state token sent to the
// provider, which provider it was sent to, and the PKCE verifier needed to
// redeem the code.
type State struct {
	State     string    `bson:"state"`
	Provider  string    `bson:"provider"`
	Verifier  string    `bson:"verifier"`
	ReturnURL string    `bson:"return_url,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages OAuth2 state tokens in MongoDB.
type Store struct {
	c *mongo.Collection
}

// New creates a new OAuth state Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states")}
}

// EnsureIndexes creates indexes for efficient querying and TTL expiration.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_oauth_state"),
		},
		// TTL index for automatic cleanup
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save stores a pending authorization. CreatedAt is set here.
func (s *Store) Save(ctx context.Context, st State) error {
	if st.State == "" {
		return errors.New("oauth state: empty state token")
	}
	st.CreatedAt = time.Now().UTC()
	_, err := s.c.InsertOne(ctx, st)
	return err
}

// Consume looks up an unexpired state token for provider and deletes it
// (one-time use). valid is false when the token is unknown, expired, or was
// issued for another provider.
func (s *Store) Consume(ctx context.Context, state, provider string) (st State, valid bool, err error) {
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"provider":   provider,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&st)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	return st, true, nil
}

// CleanupExpired removes expired state tokens.
// This is a backup for when TTL index cleanup is delayed.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
