package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given permissions.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string, permissions ...string) models.User {
	f.t.Helper()

	if permissions == nil {
		permissions = []string{}
	}
	user := models.User{
		ID:          models.NewID(),
		Name:        name,
		Email:       email,
		AuthIDs:     []string{email + "::local"},
		Permissions: permissions,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// Insert stores rec (a template from models.Structure merged with test
// values) in the collection of kind.
func (f *Fixtures) Insert(ctx context.Context, kind models.Kind, rec models.Record) models.Record {
	f.t.Helper()
	if _, err := f.db.Collection(kind.Collection()).InsertOne(ctx, bson.M(rec)); err != nil {
		f.t.Fatalf("failed to create test %s: %v", kind, err)
	}
	return rec
}

// CreateDataset inserts a dataset with the given title.
func (f *Fixtures) CreateDataset(ctx context.Context, title string) models.Record {
	f.t.Helper()
	ds := models.NewDataset()
	ds["title"] = title
	return f.Insert(ctx, models.KindDataset, ds)
}

// CreateOrder inserts an order edited by editors and owning datasets.
func (f *Fixtures) CreateOrder(ctx context.Context, title string, editors []string, datasets ...string) models.Record {
	f.t.Helper()
	o := models.NewOrder()
	o["title"] = title
	o["editors"] = anyList(editors)
	o["datasets"] = anyList(datasets)
	return f.Insert(ctx, models.KindOrder, o)
}

// CreateCollection inserts a collection edited by editors and grouping datasets.
func (f *Fixtures) CreateCollection(ctx context.Context, title string, editors []string, datasets ...string) models.Record {
	f.t.Helper()
	c := models.NewCollection()
	c["title"] = title
	c["editors"] = anyList(editors)
	c["datasets"] = anyList(datasets)
	return f.Insert(ctx, models.KindCollection, c)
}

// CreateProject inserts a project owned by owners and grouping datasets.
func (f *Fixtures) CreateProject(ctx context.Context, title string, owners []string, datasets ...string) models.Record {
	f.t.Helper()
	p := models.NewProject()
	p["title"] = title
	p["owners"] = anyList(owners)
	p["datasets"] = anyList(datasets)
	return f.Insert(ctx, models.KindProject, p)
}

// Get loads a record, or returns nil when it does not exist.
func (f *Fixtures) Get(ctx context.Context, kind models.Kind, id string) models.Record {
	f.t.Helper()
	var doc bson.M
	err := f.db.Collection(kind.Collection()).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		f.t.Fatalf("failed to load %s %s: %v", kind, id, err)
	}
	return models.RecordFromBSON(doc)
}

// CountLogs returns the number of log entries for one entity.
func (f *Fixtures) CountLogs(ctx context.Context, kind models.Kind, id string) int64 {
	f.t.Helper()
	n, err := f.db.Collection(models.LogsCollection).CountDocuments(ctx, bson.M{"data_type": kind, "data._id": id})
	if err != nil {
		f.t.Fatalf("failed to count logs: %v", err)
	}
	return n
}

func anyList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
