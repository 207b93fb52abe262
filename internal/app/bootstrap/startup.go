// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/datatracker/internal/app/store/oauthstate"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const stateCleanupInterval = time.Hour

var (
	bgMu sync.Mutex
	bg   []interface{ Stop() }
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts configured from environment",
			zap.Duration("ping", cur.Ping),
			zap.Duration("short", cur.Short),
			zap.Duration("medium", cur.Medium),
			zap.Duration("long", cur.Long))
	}

	cleanup := workers.NewStateCleanup(oauthstate.New(deps.MongoDatabase), logger, stateCleanupInterval)
	cleanup.Start()

	bgMu.Lock()
	bg = append(bg, cleanup)
	bgMu.Unlock()
	return nil
}

// stopBackground stops the workers started by Startup.
func stopBackground() {
	bgMu.Lock()
	defer bgMu.Unlock()
	for _, w := range bg {
		w.Stop()
	}
	bg = nil
}
