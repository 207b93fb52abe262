// internal/app/system/changes/changes.go
//
// Package changes performs entity writes together with their audit log
// entries. Every mutation of orders, datasets, collections, projects and
// users goes through a Recorder so that no change is left unlogged.
package changes

import (
	"context"
	"errors"
	"fmt"

	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	recordstore "github.com/dalemusser/datatracker/internal/app/store/records"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/cascade"
	"github.com/dalemusser/datatracker/internal/app/system/metrics"
	"github.com/dalemusser/datatracker/internal/app/system/txn"
	"github.com/dalemusser/datatracker/internal/app/system/validate"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrUnknownAction is returned by Commit for actions other than add, edit
// and delete.
var ErrUnknownAction = errors.New("unknown change action")

// secretUserFields never appear in log snapshots.
var secretUserFields = []string{"api_key", "api_salt"}

// Recorder writes records and logs each write.
type Recorder struct {
	db      *mongo.Database
	records *recordstore.Store
	users   *userstore.Store
	logs    *logstore.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewRecorder builds a Recorder over db. m may be nil.
func NewRecorder(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:      db,
		records: recordstore.New(db),
		users:   userstore.New(db),
		logs:    logstore.New(db),
		metrics: m,
		log:     logger,
	}
}

// Records returns the record store the Recorder writes through.
func (r *Recorder) Records() *recordstore.Store { return r.records }

// Commit performs one write and logs it, in a single transaction when the
// deployment supports one.
//
//   - add inserts rec and logs it in full.
//   - edit sets every field of rec except _id and logs rec in full, so rec
//     must be the complete record after the change.
//   - delete removes the record with rec's _id and logs only {_id}.
//
// actor is the user id making the change; "" records the system.
func (r *Recorder) Commit(ctx context.Context, actor string, kind models.Kind, action, comment string, rec models.Record) error {
	id := rec.ID()
	if id == "" {
		return fmt.Errorf("commit %s %s: missing _id", action, kind)
	}
	return txn.Run(ctx, r.db, r.log, func(ctx context.Context) error {
		switch action {
		case models.ActionAdd:
			if err := r.records.Insert(ctx, kind, rec); err != nil {
				return err
			}
			return r.record(ctx, actor, kind, action, comment, rec)
		case models.ActionEdit:
			if err := r.records.Update(ctx, kind, id, rec); err != nil {
				return err
			}
			return r.record(ctx, actor, kind, action, comment, rec)
		case models.ActionDelete:
			if err := r.records.Delete(ctx, kind, id); err != nil {
				return err
			}
			return r.record(ctx, actor, kind, action, comment, models.Record{"_id": id})
		}
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	})
}

// AddOwned inserts rec as a new entity of kind and appends its id to the
// list field of the owner, logging both the add and the owner's resulting
// state. Returns recordstore.ErrNotFound when the owner does not exist.
func (r *Recorder) AddOwned(ctx context.Context, actor string, kind models.Kind, rec models.Record, comment string, ownerKind models.Kind, ownerID, field, ownerComment string) error {
	id := rec.ID()
	if id == "" {
		return fmt.Errorf("add owned %s: missing _id", kind)
	}
	return txn.Run(ctx, r.db, r.log, func(ctx context.Context) error {
		ok, err := r.records.Exists(ctx, ownerKind, ownerID)
		if err != nil {
			return err
		}
		if !ok {
			return recordstore.ErrNotFound
		}
		if err := r.records.Insert(ctx, kind, rec); err != nil {
			return err
		}
		if err := r.record(ctx, actor, kind, models.ActionAdd, comment, rec); err != nil {
			return err
		}
		if err := r.records.Push(ctx, ownerKind, ownerID, field, id); err != nil {
			return err
		}
		owner, err := r.records.Get(ctx, ownerKind, ownerID)
		if err != nil {
			return err
		}
		return r.record(ctx, actor, ownerKind, models.ActionEdit, ownerComment, owner)
	})
}

// Delete removes an entity and applies the cascade rules for its kind:
// owned entities are deleted (with their own cascades) and references in
// other entities are removed. Every write is logged. Returns
// recordstore.ErrNotFound when the entity does not exist.
func (r *Recorder) Delete(ctx context.Context, actor string, kind models.Kind, id, comment string) error {
	return txn.Run(ctx, r.db, r.log, func(ctx context.Context) error {
		return r.deleteCascade(ctx, actor, kind, id, comment, map[string]bool{})
	})
}

// deleteCascade deletes one entity. deleting holds the ids removed in this
// cascade so their own references are not edited just before they go.
func (r *Recorder) deleteCascade(ctx context.Context, actor string, kind models.Kind, id, comment string, deleting map[string]bool) error {
	rec, err := r.records.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	deleting[id] = true

	for _, rule := range cascade.For(kind) {
		if rule.Action != cascade.DeleteOwned {
			continue
		}
		for _, owned := range rec.Strings(rule.Field) {
			if deleting[owned] {
				continue
			}
			err := r.deleteCascade(ctx, actor, rule.Referrer, owned, fmt.Sprintf("Deleting %s", kind), deleting)
			if errors.Is(err, recordstore.ErrNotFound) {
				r.log.Warn("owned entry already gone",
					zap.String("kind", string(rule.Referrer)),
					zap.String("id", owned))
				continue
			}
			if err != nil {
				return err
			}
		}
	}

	order, byKind := cascade.Referrers(kind)
	for _, refKind := range order {
		if err := r.removeReferences(ctx, actor, kind, id, refKind, byKind[refKind], deleting); err != nil {
			return err
		}
	}

	if err := r.records.Delete(ctx, kind, id); err != nil {
		return err
	}
	return r.record(ctx, actor, kind, models.ActionDelete, comment, models.Record{"_id": id})
}

func (r *Recorder) removeReferences(ctx context.Context, actor string, kind models.Kind, id string, refKind models.Kind, rules []cascade.Rule, deleting map[string]bool) error {
	seen := map[string]bool{}
	for _, rule := range rules {
		refs, err := r.records.FindReferencing(ctx, refKind, rule.Field, id)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			refID := ref.ID()
			if seen[refID] || deleting[refID] {
				continue
			}
			seen[refID] = true

			changed := cascade.Apply(ref, id, rules)
			if len(changed) == 0 {
				continue
			}
			set := map[string]any{}
			for _, field := range changed {
				set[field] = ref[field]
			}
			if err := r.records.Update(ctx, refKind, refID, set); err != nil {
				return err
			}
			comment := fmt.Sprintf("Removed reference to deleted %s %s", kind, id)
			if err := r.record(ctx, actor, refKind, models.ActionEdit, comment, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// Atomic runs fn in one transaction. Commit, AddOwned, Delete and the user
// resolution helpers called from fn with its ctx join that transaction, so
// users registered by reference are rolled back with a failed write.
func (r *Recorder) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return txn.Run(ctx, r.db, r.log, fn)
}

// ResolveUsers maps user references to user ids. Email references to
// unknown users register a new user, which is logged. Validation must have
// passed already.
func (r *Recorder) ResolveUsers(ctx context.Context, actor string, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		ref, err := validate.ParseUserRef(v)
		if err != nil {
			return nil, err
		}
		if !ref.IsEmail() {
			out = append(out, ref.ID())
			continue
		}
		u, created, err := r.users.EnsureByEmail(ctx, ref.Email())
		if err != nil {
			return nil, fmt.Errorf("resolve user %s: %w", ref.Email(), err)
		}
		if created {
			if err := r.record(ctx, actor, models.KindUser, models.ActionAdd, "User added by reference", u.Record()); err != nil {
				return nil, err
			}
		}
		out = append(out, u.ID)
	}
	return out, nil
}

// ResolveUserFields rewrites the user reference fields present in doc to
// user ids, in place. List fields stay lists; single fields stay strings.
func (r *Recorder) ResolveUserFields(ctx context.Context, actor string, doc map[string]any, listFields, singleFields []string) error {
	for _, f := range listFields {
		v, ok := doc[f]
		if !ok {
			continue
		}
		ids, err := r.ResolveUsers(ctx, actor, models.StringList(v))
		if err != nil {
			return err
		}
		list := make([]any, len(ids))
		for i, id := range ids {
			list[i] = id
		}
		doc[f] = list
	}
	for _, f := range singleFields {
		s, ok := doc[f].(string)
		if !ok || s == "" {
			continue
		}
		ids, err := r.ResolveUsers(ctx, actor, []string{s})
		if err != nil {
			return err
		}
		doc[f] = ids[0]
	}
	return nil
}

// Log writes an audit entry for a change made outside Commit (for example
// a $push onto a list).
func (r *Recorder) Log(ctx context.Context, actor string, kind models.Kind, action, comment string, data models.Record) error {
	return r.record(ctx, actor, kind, action, comment, data)
}

func (r *Recorder) record(ctx context.Context, actor string, kind models.Kind, action, comment string, data models.Record) error {
	snapshot := data.Clone()
	if kind == models.KindUser {
		for _, f := range secretUserFields {
			delete(snapshot, f)
		}
	}
	entry, err := r.logs.Log(ctx, models.LogEntry{
		Action:   action,
		Comment:  comment,
		DataType: kind,
		Data:     snapshot,
		User:     actor,
	})
	if err != nil {
		r.log.Error("change log write failed",
			zap.String("data_type", string(kind)),
			zap.String("action", action),
			zap.String("id", data.ID()),
			zap.Error(err))
		return err
	}
	r.metrics.ObserveChange(string(kind), action)
	r.log.Debug("change logged",
		zap.String("log_id", entry.ID),
		zap.String("data_type", string(kind)),
		zap.String("action", action),
		zap.String("id", data.ID()),
		zap.String("user", entry.User))
	return nil
}
