// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	auditstore "github.com/dalemusser/datatracker/internal/app/store/audit"
	logstore "github.com/dalemusser/datatracker/internal/app/store/logs"
	"github.com/dalemusser/datatracker/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/dbinit"
	"github.com/dalemusser/datatracker/internal/app/system/indexes"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// ConnectDB opens the MongoDB client and verifies it with a ping.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize).
		SetAppName("datatracker")

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect MongoDB: %w", err)
	}

	pctx, pcancel := context.WithTimeout(ctx, timeouts.Ping())
	defer pcancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the indexes, then initializes a fresh database or
// migrates an older one. The default user's API key is logged once, on
// the run that creates it.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	ictx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	err := indexes.EnsureAll(ictx, db,
		userstore.New(db),
		logstore.New(db),
		auditstore.New(db),
		oauthstate.New(db),
	)
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	rec := changes.NewRecorder(db, nil, logger)

	octx, ocancel := context.WithTimeout(ctx, timeouts.Long())
	defer ocancel()
	out, err := dbinit.New(db, rec, audit, logger).Check(octx)
	if err != nil {
		return fmt.Errorf("database check: %w", err)
	}

	switch {
	case out.Initialized:
		logger.Warn("database initialized; store the default user's API key, it is not shown again",
			zap.String("user_id", out.DefaultUser.ID),
			zap.String("email", out.DefaultUser.Email),
			zap.String("api_key", out.DefaultUser.APIKey))
	case out.From != out.To:
		logger.Info("database migrated", zap.Int("from", out.From), zap.Int("to", out.To))
	default:
		logger.Debug("database schema current", zap.Int("version", out.To))
	}
	return nil
}
