// internal/app/admin/admin.go
//
// Package admin holds the operations behind the dtadmin command: database
// setup and inspection, and user and API key provisioning without going
// through the HTTP API. Changes are logged like API changes, with the
// system as the actor.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditstore "github.com/dalemusser/datatracker/internal/app/store/audit"
	dbstatusstore "github.com/dalemusser/datatracker/internal/app/store/dbstatus"
	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	"github.com/dalemusser/datatracker/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/dbinit"
	"github.com/dalemusser/datatracker/internal/app/system/indexes"
	"github.com/dalemusser/datatracker/internal/app/system/normalize"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/txn"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrEmailRequired is returned by AddUser without an email.
	ErrEmailRequired = errors.New("email is required")
	// ErrEmailInUse is returned by AddUser when another user has the email.
	ErrEmailInUse = errors.New("email already in use")
	// ErrUnknownPermission is returned for a permission name that does not exist.
	ErrUnknownPermission = errors.New("unknown permission")
)

// Admin performs administrative operations on one database.
type Admin struct {
	db      *mongo.Database
	changes *changes.Recorder
	audit   *auditlog.Logger
	events  *auditstore.Store
	logs    *logstore.Store
	users   *userstore.Store
	status  *dbstatusstore.Store
	log     *zap.Logger
}

// New creates an Admin. Audit events are written to the database and the log.
func New(db *mongo.Database, logger *zap.Logger) *Admin {
	events := auditstore.New(db)
	return &Admin{
		db:      db,
		changes: changes.NewRecorder(db, nil, logger),
		audit:   auditlog.New(events, logger, auditlog.Config{Auth: "all", Admin: "all"}),
		events:  events,
		logs:    logstore.New(db),
		users:   userstore.New(db),
		status:  dbstatusstore.New(db),
		log:     logger,
	}
}

// InitDB creates the indexes and initializes or migrates the database.
func (a *Admin) InitDB(ctx context.Context) (dbinit.Outcome, error) {
	err := indexes.EnsureAll(ctx, a.db,
		a.users,
		a.logs,
		a.events,
		oauthstate.New(a.db),
	)
	if err != nil {
		return dbinit.Outcome{}, fmt.Errorf("ensure indexes: %w", err)
	}
	return dbinit.New(a.db, a.changes, a.audit, a.log).Check(ctx)
}

// Status describes the state of a database.
type Status struct {
	Started  bool
	Finished bool
	Version  int // 0 when unset
	Expected int
	Users    int64
	Changes  int64 // entries in the change log
}

// Current reports whether Version matches what this build expects.
func (s Status) Current() bool {
	return s.Finished && s.Version == s.Expected
}

// Status reads the setup and version markers without changing anything.
func (a *Admin) Status(ctx context.Context) (Status, error) {
	st := Status{Expected: dbinit.Version}

	is, err := a.status.Init(ctx)
	if err != nil {
		return st, err
	}
	if is != nil {
		st.Started = is.Started
		st.Finished = is.Finished
	}
	if v, ok, err := a.status.Version(ctx); err != nil {
		return st, err
	} else if ok {
		st.Version = v
	}
	if st.Users, err = a.users.Count(ctx); err != nil {
		return st, err
	}
	if st.Changes, err = a.logs.Count(ctx, bson.M{}); err != nil {
		return st, err
	}
	return st, nil
}

// AddUser registers a user with a local auth id and the given permissions
// and returns its id.
func (a *Admin) AddUser(ctx context.Context, name, email string, perms []string) (string, error) {
	email = normalize.Email(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	granted := make([]any, 0, len(perms))
	for _, p := range perms {
		if !permissions.IsKnown(p) {
			return "", fmt.Errorf("%w: %s", ErrUnknownPermission, p)
		}
		granted = append(granted, p)
	}
	taken, err := a.users.EmailExistsForOther(ctx, email, "")
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrEmailInUse
	}

	rec := models.NewUserRecord()
	rec.Merge(map[string]any{
		"name":        normalize.Name(name),
		"email":       email,
		"permissions": granted,
	})
	rec["auth_ids"] = []any{rec.ID() + "::local"}

	if err := a.changes.Commit(ctx, "", models.KindUser, models.ActionAdd, "User added by admin", rec); err != nil {
		return "", err
	}
	a.audit.UserCreated(ctx, nil, "", rec.ID())
	a.log.Info("user added", zap.String("user_id", rec.ID()), zap.Strings("permissions", perms))
	return rec.ID(), nil
}

// IssueAPIKey replaces the API key of the user with the given id or email
// and returns the new key. Only its hash is stored.
func (a *Admin) IssueAPIKey(ctx context.Context, ref string) (userID, key string, err error) {
	u, err := a.users.GetByRef(ctx, normalize.QueryParam(ref))
	if err != nil {
		return "", "", err
	}

	key, salt, err := auth.GenerateAPIKey()
	if err != nil {
		return "", "", err
	}
	hash, err := auth.HashAPIKey(key, salt)
	if err != nil {
		return "", "", err
	}

	err = txn.Run(ctx, a.db, a.log, func(ctx context.Context) error {
		if err := a.users.SetAPIKey(ctx, u.ID, hash, salt); err != nil {
			return err
		}
		user, err := a.users.GetByID(ctx, u.ID)
		if err != nil {
			return err
		}
		return a.changes.Log(ctx, "", models.KindUser, models.ActionEdit, "New API key", user.Record())
	})
	if err != nil {
		return "", "", err
	}
	a.audit.APIKeyIssued(ctx, nil, "", u.ID)
	return u.ID, key, nil
}

// AuditQuery selects security events for AuditEvents. FailedSince takes
// precedence over User; with neither set the most recent events are
// returned.
type AuditQuery struct {
	User        string // id or email
	FailedSince time.Time
	Limit       int64
}

// AuditEvents reads the security audit trail, newest first.
func (a *Admin) AuditEvents(ctx context.Context, q AuditQuery) ([]auditstore.Event, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	switch {
	case !q.FailedSince.IsZero():
		return a.events.GetFailedLogins(ctx, q.FailedSince, q.Limit)
	case q.User != "":
		id := normalize.QueryParam(q.User)
		u, err := a.users.GetByRef(ctx, id)
		switch {
		case err == nil:
			id = u.ID
		case !errors.Is(err, userstore.ErrNotFound):
			return nil, err
		}
		// a deleted user's events stay queryable by id
		return a.events.GetByUser(ctx, id, q.Limit)
	default:
		return a.events.GetRecent(ctx, q.Limit)
	}
}
