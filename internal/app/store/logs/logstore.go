// internal/app/store/logs/logstore.go
package logstore

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SystemActor is recorded as the user of changes made without a signed-in
// user (first OIDC login, admin CLI).
const SystemActor = "system"

// Store manages the audit trail in the logs collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new log Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.LogsCollection)}
}

// EnsureIndexes creates the indexes used by the log read endpoints.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// History of one entity
		{
			Keys: bson.D{
				{Key: "data_type", Value: 1},
				{Key: "data._id", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().SetName("idx_logs_entity"),
		},
		// Actions of one user
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_logs_user"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records one change. ID, Timestamp and User are filled in when empty.
func (s *Store) Log(ctx context.Context, entry models.LogEntry) (models.LogEntry, error) {
	if entry.ID == "" {
		entry.ID = models.NewID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.User == "" {
		entry.User = SystemActor
	}
	if _, err := s.c.InsertOne(ctx, entry); err != nil {
		return entry, fmt.Errorf("log %s %s: %w", entry.Action, entry.DataType, err)
	}
	return entry, nil
}

// ForEntity returns the log entries of one entity, oldest first.
func (s *Store) ForEntity(ctx context.Context, dataType models.Kind, id string) ([]models.LogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"data_type": dataType, "data._id": id}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

// ByUser returns the changes made by one user, newest first.
func (s *Store) ByUser(ctx context.Context, userID string) ([]models.LogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, cur)
}

// Count returns the number of entries matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.c.CountDocuments(ctx, filter)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]models.LogEntry, error) {
	defer cur.Close(ctx)
	out := []models.LogEntry{}
	for cur.Next(ctx) {
		var entry models.LogEntry
		if err := cur.Decode(&entry); err != nil {
			return nil, err
		}
		entry.Data = models.RecordFromBSON(bson.M(entry.Data))
		out = append(out, entry)
	}
	return out, cur.Err()
}

// Incremental rewrites entries (oldest first) so that every entry after the
// first keeps only "_id" and the fields whose value changed since the
// previous entry. The first entry keeps its full snapshot.
func Incremental(entries []models.LogEntry) []models.LogEntry {
	out := make([]models.LogEntry, len(entries))
	var prev models.Record
	for i, e := range entries {
		full := e.Data.Clone()
		if i > 0 && prev != nil && full != nil {
			diff := models.Record{"_id": full.ID()}
			for k, v := range full {
				if k == "_id" {
					continue
				}
				if old, ok := prev[k]; !ok || !reflect.DeepEqual(old, v) {
					diff[k] = v
				}
			}
			e.Data = diff
		}
		out[i] = e
		prev = full
	}
	return out
}
