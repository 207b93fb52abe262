// internal/app/store/dbstatus/dbstatusstore.go
package dbstatusstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document ids in the db_status collection.
const (
	initID    = "init_db"
	versionID = "db_version"
)

// InitStatus tracks first-time database setup. A crash between steps
// leaves Finished false, which CheckDB reports.
type InitStatus struct {
	ID        string `bson:"_id"`
	Started   bool   `bson:"started"`
	UserAdded bool   `bson:"user_added"`
	Finished  bool   `bson:"finished"`
}

type versionDoc struct {
	ID      string `bson:"_id"`
	Version int    `bson:"version"`
}

// Store provides access to the db_status collection, which records
// whether the database was initialized and which schema version it holds.
type Store struct {
	c *mongo.Collection
}

// New creates a new db status store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("db_status")}
}

// Init returns the setup status, or nil when setup never started.
func (s *Store) Init(ctx context.Context) (*InitStatus, error) {
	var st InitStatus
	err := s.c.FindOne(ctx, bson.M{"_id": initID}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// BeginInit records that setup started. It fails with a duplicate key
// error when setup was started before.
func (s *Store) BeginInit(ctx context.Context) error {
	_, err := s.c.InsertOne(ctx, InitStatus{ID: initID, Started: true})
	return err
}

// MarkUserAdded records that the default user exists.
func (s *Store) MarkUserAdded(ctx context.Context) error {
	return s.setInit(ctx, "user_added")
}

// MarkFinished records that setup completed.
func (s *Store) MarkFinished(ctx context.Context) error {
	return s.setInit(ctx, "finished")
}

func (s *Store) setInit(ctx context.Context, field string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": initID}, bson.M{"$set": bson.M{field: true}})
	return err
}

// Version returns the stored schema version; ok is false when none is stored.
func (s *Store) Version(ctx context.Context) (version int, ok bool, err error) {
	var doc versionDoc
	err = s.c.FindOne(ctx, bson.M{"_id": versionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return doc.Version, true, nil
}

// SetVersion stores the schema version.
// Uses upsert so it works whether the version document exists or not.
func (s *Store) SetVersion(ctx context.Context, version int) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": versionID},
		bson.M{"$set": bson.M{"version": version}},
		opts)
	return err
}
