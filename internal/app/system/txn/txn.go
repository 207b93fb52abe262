// internal/app/system/txn/txn.go
//
// Package txn runs multi-collection writes in a MongoDB transaction when the
// deployment supports one (replica set or sharded cluster), and falls back to
// running them without a transaction on standalone servers.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes returned when transactions or sessions are unavailable.
const (
	codeIllegalOperation      = 20
	codeNoReplicationEnabled  = 51 // older servers
	codeOperationNotSupported = 263
)

// Run executes fn inside a transaction. fn must use the ctx it is given so
// its operations join the session. When ctx already carries a session, fn
// joins that transaction instead of starting its own. When the server
// rejects transactions, fn is run once more without one and a warning is
// logged.
//
// fn may be retried on transient errors and must be safe to run again.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithout(ctx, log, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runWithout(ctx, log, err, fn)
	}
	return err
}

func runWithout(ctx context.Context, log *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Warn("transactions unavailable; running writes sequentially", zap.Error(cause))
	}
	return fn(ctx)
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoReplicationEnabled, codeOperationNotSupported:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
