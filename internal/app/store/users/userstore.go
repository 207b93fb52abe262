package userstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/datatracker/internal/app/system/normalize"
	"github.com/dalemusser/datatracker/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

// Store reads and writes the users collection with typed access. Generic
// record reads and field updates go through the record store; this store
// owns the operations that touch credentials and identities.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.KindUser.Collection())}
}

// EnsureIndexes creates the unique email index (ignoring empty emails) and
// the auth id lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("uniq_users_email").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
		},
		{
			Keys:    bson.D{{Key: "auth_ids", Value: 1}},
			Options: options.Index().SetName("idx_users_auth_ids"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByAuthID loads the user holding the login identity authID
// ("<subject>::<provider>").
func (s *Store) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"auth_ids": authID})
}

// GetByEmail looks up a user by case-insensitive email. Returns ErrNotFound if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"email": email})
}

// GetByRef loads a user by identifier, or by email when ref is not an
// identifier.
func (s *Store) GetByRef(ctx context.Context, ref string) (*models.User, error) {
	if models.IsID(ref) {
		return s.GetByID(ctx, ref)
	}
	return s.GetByEmail(ctx, ref)
}

// Create inserts a new user. An empty ID is assigned; email is normalized.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	u.Name = normalize.Name(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.AuthIDs == nil {
		u.AuthIDs = []string{}
	}
	if u.Permissions == nil {
		u.Permissions = []string{}
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email, excludeID string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// SetAPIKey stores the hash and salt of a new API key.
func (s *Store) SetAPIKey(ctx context.Context, id, hash, salt string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"api_key": hash, "api_salt": salt}})
	if err != nil {
		return fmt.Errorf("set api key: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAuthID attaches a login identity to a user. Adding an identity the user
// already holds is a no-op.
func (s *Store) AddAuthID(ctx context.Context, id, authID string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$addToSet": bson.M{"auth_ids": authID}})
	if err != nil {
		return fmt.Errorf("add auth id: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureByEmail returns the user registered with email, creating one with
// only that email when none exists. created reports whether a user was
// inserted.
func (s *Store) EnsureByEmail(ctx context.Context, email string) (u models.User, created bool, err error) {
	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		return *existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.User{}, false, err
	}

	u, err = s.Create(ctx, models.User{Email: email})
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost a race with a concurrent insert of the same email.
		existing, err = s.GetByEmail(ctx, email)
		if err != nil {
			return models.User{}, false, err
		}
		return *existing, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return u, true, nil
}

// Summaries loads {id, name, email} for each id. Unknown ids are absent
// from the result.
func (s *Store) Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	proj := options.Find().SetProjection(bson.M{"_id": 1, "name": 1, "email": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var sum models.UserSummary
		if err := cur.Decode(&sum); err != nil {
			return nil, err
		}
		out[sum.ID] = sum
	}
	return out, cur.Err()
}

// Count returns the number of users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
