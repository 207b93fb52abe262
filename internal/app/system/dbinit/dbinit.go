// internal/app/system/dbinit/dbinit.go
//
// Package dbinit performs first-time database setup and checks that the
// stored schema version matches this build, running migrations when the
// database is older.
package dbinit

import (
	"context"
	"errors"
	"fmt"

	dbstatusstore "github.com/dalemusser/datatracker/internal/app/store/dbstatus"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Version is the schema version this build works with.
const Version = 1

// Default user created on first setup.
const (
	DefaultUserName   = "Default User"
	DefaultUserEmail  = "default_user@example.com"
	DefaultUserAuthID = "default::default"
)

var (
	// ErrNewerDatabase means the database was written by a newer build.
	ErrNewerDatabase = errors.New("the database is newer than the software")
	// ErrIncompleteInit means an earlier setup stopped part way.
	ErrIncompleteInit = errors.New("database setup started but never finished")
	// ErrMissingMigration means no migration is registered for a version step.
	ErrMissingMigration = errors.New("no migration registered")
)

// Migration upgrades the database from one version to the next.
type Migration func(ctx context.Context, db *mongo.Database) error

// migrations[v] upgrades version v to v+1.
var migrations = map[int]Migration{}

// DefaultUser is the account created by Init. APIKey is only available
// here; the database keeps its hash.
type DefaultUser struct {
	ID     string
	Email  string
	APIKey string
}

// Outcome reports what Check did.
type Outcome struct {
	Initialized bool         // first-time setup ran
	DefaultUser *DefaultUser // set when Initialized
	From, To    int          // versions before and after
}

// Setup runs setup and checks against one database.
type Setup struct {
	db       *mongo.Database
	status   *dbstatusstore.Store
	recorder *changes.Recorder
	audit    *auditlog.Logger
	log      *zap.Logger
}

// New creates a Setup. audit may be nil.
func New(db *mongo.Database, recorder *changes.Recorder, audit *auditlog.Logger, logger *zap.Logger) *Setup {
	return &Setup{
		db:       db,
		status:   dbstatusstore.New(db),
		recorder: recorder,
		audit:    audit,
		log:      logger,
	}
}

// Check initializes a fresh database, or verifies the version of an
// initialized one and migrates it forward.
func (s *Setup) Check(ctx context.Context) (Outcome, error) {
	st, err := s.status.Init(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("read init status: %w", err)
	}
	if st == nil {
		du, err := s.Init(ctx)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Initialized: true, DefaultUser: du, To: Version}, nil
	}
	if !st.Finished {
		return Outcome{}, fmt.Errorf("%w (user_added=%v)", ErrIncompleteInit, st.UserAdded)
	}

	from, err := s.Migrate(ctx)
	if err != nil {
		return Outcome{From: from}, err
	}
	return Outcome{From: from, To: Version}, nil
}

// Init performs first-time setup: it marks setup as started, adds the
// default user with a fresh API key, stores the schema version and marks
// setup as finished. A second Init fails.
func (s *Setup) Init(ctx context.Context) (*DefaultUser, error) {
	if err := s.status.BeginInit(ctx); err != nil {
		return nil, fmt.Errorf("begin init: %w", err)
	}

	s.log.Info("attempting to add default user")
	key, salt, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashAPIKey(key, salt)
	if err != nil {
		return nil, err
	}

	rec := models.NewUserRecord()
	rec.Merge(map[string]any{
		"name":        DefaultUserName,
		"email":       DefaultUserEmail,
		"permissions": []any{permissions.UserManagement},
		"api_key":     hash,
		"api_salt":    salt,
		"auth_ids":    []any{DefaultUserAuthID},
	})
	if err := s.recorder.Commit(ctx, "", models.KindUser, models.ActionAdd, "Default user added", rec); err != nil {
		return nil, fmt.Errorf("add default user: %w", err)
	}
	if err := s.status.MarkUserAdded(ctx); err != nil {
		return nil, err
	}
	s.log.Info("default user added", zap.String("user_id", rec.ID()))

	if err := s.status.SetVersion(ctx, Version); err != nil {
		return nil, fmt.Errorf("set version: %w", err)
	}
	if err := s.status.MarkFinished(ctx); err != nil {
		return nil, err
	}
	s.audit.DatabaseInitialized(ctx, rec.ID())

	return &DefaultUser{ID: rec.ID(), Email: DefaultUserEmail, APIKey: key}, nil
}

// Migrate brings an initialized database to Version and returns the
// version it started from.
func (s *Setup) Migrate(ctx context.Context) (int, error) {
	current, ok, err := s.status.Version(ctx)
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: version missing", ErrIncompleteInit)
	}

	switch {
	case current > Version:
		s.log.Error("the database is newer than the software",
			zap.Int("db_version", current),
			zap.Int("software_version", Version))
		return current, ErrNewerDatabase
	case current == Version:
		s.log.Info("the database is up-to-date", zap.Int("version", current))
		return current, nil
	}

	for v := current; v < Version; v++ {
		m, ok := migrations[v]
		if !ok {
			return current, fmt.Errorf("%w for version %d to %d", ErrMissingMigration, v, v+1)
		}
		s.log.Info("database migration starting", zap.Int("from", v), zap.Int("to", v+1))
		if err := m(ctx, s.db); err != nil {
			return current, fmt.Errorf("migrate %d to %d: %w", v, v+1, err)
		}
		if err := s.status.SetVersion(ctx, v+1); err != nil {
			return current, err
		}
	}
	return current, nil
}
