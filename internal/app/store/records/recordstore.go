// internal/app/store/records/recordstore.go
package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no record has the requested identifier.
	ErrNotFound = errors.New("record not found")
	// ErrNotAcknowledged is returned when the server did not acknowledge a write.
	ErrNotAcknowledged = errors.New("write not acknowledged")
)

// Store reads and writes the untyped entity collections (orders, datasets,
// collections, projects, users). One Store serves every kind; the kind
// selects the collection.
type Store struct {
	db *mongo.Database
}

// New creates a record Store over db.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) coll(kind models.Kind) *mongo.Collection {
	return s.db.Collection(kind.Collection())
}

// Get loads one record. Returns ErrNotFound when it does not exist.
func (s *Store) Get(ctx context.Context, kind models.Kind, id string) (models.Record, error) {
	return s.GetProjected(ctx, kind, id, nil)
}

// GetProjected loads one record limited to projection (nil for all fields).
func (s *Store) GetProjected(ctx context.Context, kind models.Kind, id string, projection bson.M) (models.Record, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}
	var doc bson.M
	if err := s.coll(kind).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return models.RecordFromBSON(doc), nil
}

// List returns the records matching filter, limited to projection (nil for
// all fields), sorted by title.
func (s *Store) List(ctx context.Context, kind models.Kind, filter bson.M, projection bson.M) ([]models.Record, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})
	if projection != nil {
		opts.SetProjection(projection)
	}
	cur, err := s.coll(kind).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return decodeAll(ctx, cur)
}

// Insert stores a new record. rec must carry its identifier in "_id".
func (s *Store) Insert(ctx context.Context, kind models.Kind, rec models.Record) error {
	if rec.ID() == "" {
		return fmt.Errorf("insert %s: missing _id", kind)
	}
	if _, err := s.coll(kind).InsertOne(ctx, bson.M(rec)); err != nil {
		return writeErr("insert", kind, err)
	}
	return nil
}

// Update sets the given fields on a record. "_id" in set is ignored.
// Returns ErrNotFound when the record does not exist.
func (s *Store) Update(ctx context.Context, kind models.Kind, id string, set map[string]any) error {
	fields := bson.M{}
	for k, v := range set {
		if k == "_id" {
			continue
		}
		fields[k] = v
	}
	if len(fields) == 0 {
		return nil
	}
	res, err := s.coll(kind).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return writeErr("update", kind, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record. Returns ErrNotFound when nothing was deleted.
func (s *Store) Delete(ctx context.Context, kind models.Kind, id string) error {
	res, err := s.coll(kind).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return writeErr("delete", kind, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether a record with id exists.
func (s *Store) Exists(ctx context.Context, kind models.Kind, id string) (bool, error) {
	n, err := s.coll(kind).CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("exists %s %s: %w", kind, id, err)
	}
	return n > 0, nil
}

// FindReferencing returns the records of kind whose list field contains id.
func (s *Store) FindReferencing(ctx context.Context, kind models.Kind, field, id string) ([]models.Record, error) {
	cur, err := s.coll(kind).Find(ctx, bson.M{field: id})
	if err != nil {
		return nil, fmt.Errorf("find %s referencing %s: %w", kind, id, err)
	}
	return decodeAll(ctx, cur)
}

// Pull removes value from the list field of one record.
func (s *Store) Pull(ctx context.Context, kind models.Kind, id, field, value string) error {
	_, err := s.coll(kind).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{field: value}})
	if err != nil {
		return writeErr("pull", kind, err)
	}
	return nil
}

// Push appends value to the list field of one record.
func (s *Store) Push(ctx context.Context, kind models.Kind, id, field, value string) error {
	res, err := s.coll(kind).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{field: value}})
	if err != nil {
		return writeErr("push", kind, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Sample returns up to n randomly chosen records.
func (s *Store) Sample(ctx context.Context, kind models.Kind, n int) ([]models.Record, error) {
	if n < 1 {
		n = 1
	}
	cur, err := s.coll(kind).Aggregate(ctx, mongo.Pipeline{{{Key: "$sample", Value: bson.M{"size": n}}}})
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", kind, err)
	}
	return decodeAll(ctx, cur)
}

// UserExists implements validate.Lookup.
func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	return s.Exists(ctx, models.KindUser, id)
}

// DatasetExists implements validate.Lookup.
func (s *Store) DatasetExists(ctx context.Context, id string) (bool, error) {
	return s.Exists(ctx, models.KindDataset, id)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]models.Record, error) {
	defer cur.Close(ctx)
	out := []models.Record{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, models.RecordFromBSON(doc))
	}
	return out, cur.Err()
}

func writeErr(op string, kind models.Kind, err error) error {
	if errors.Is(err, mongo.ErrUnacknowledgedWrite) {
		return fmt.Errorf("%s %s: %w", op, kind, ErrNotAcknowledged)
	}
	return fmt.Errorf("%s %s: %w", op, kind, err)
}
