// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/hashicorp/go-multierror"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Ensurer is implemented by stores that own the indexes of their collection
// (users, logs, audit_events, oauth_states).
type Ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

// entityIndexes lists the list fields of each entity collection that are
// queried by value: reference cleanup on delete and "where I am editor"
// listings.
var entityIndexes = map[models.Kind][]string{
	models.KindOrder:      {"datasets", "editors", "authors", "generators"},
	models.KindCollection: {"datasets", "editors"},
	models.KindProject:    {"datasets", "owners"},
	models.KindDataset:    nil,
}

/*
EnsureAll is called at startup and by the admin CLI. Index creation is
idempotent: every index carries a fixed name, and creating an existing index
with the same name and keys is a no-op on the server. Errors are aggregated
so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, stores ...Ensurer) error {
	var result *multierror.Error

	for _, kind := range models.Kinds {
		fields, ok := entityIndexes[kind]
		if !ok {
			continue
		}
		if err := ensureEntity(ctx, db.Collection(kind.Collection()), fields); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", kind.Collection(), err))
		}
	}

	for _, s := range stores {
		if err := s.EnsureIndexes(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("%T: %w", s, err))
		}
	}

	return result.ErrorOrNil()
}

// Names returns the index names EnsureAll creates on an entity collection.
func Names(kind models.Kind) []string {
	names := []string{indexName(kind.Collection(), "title")}
	for _, f := range entityIndexes[kind] {
		names = append(names, indexName(kind.Collection(), f))
	}
	return names
}

func indexName(collection, field string) string {
	return "idx_" + collection + "_" + strings.ReplaceAll(field, ".", "_")
}

func ensureEntity(ctx context.Context, coll *mongo.Collection, fields []string) error {
	models := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName(indexName(coll.Name(), "title")),
	}}
	for _, f := range fields {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f, Value: 1}},
			Options: options.Index().SetName(indexName(coll.Name(), f)),
		})
	}

	zap.L().Info("ensuring indexes",
		zap.String("collection", coll.Name()),
		zap.Int("count", len(models)))

	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}
