// internal/app/system/workers/statecleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/datatracker/internal/app/store/oauthstate"
	"go.uber.org/zap"
)

// StateCleanup is a background worker that removes expired OAuth states.
// It backs up the TTL index, whose monitor runs only once a minute and
// may lag under load.
type StateCleanup struct {
	states   *oauthstate.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStateCleanup creates a cleanup worker running every interval.
func NewStateCleanup(states *oauthstate.Store, logger *zap.Logger, interval time.Duration) *StateCleanup {
	return &StateCleanup{
		states:   states,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *StateCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("oauth state cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Calling it
// more than once is safe.
func (w *StateCleanup) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("oauth state cleanup worker stopped")
	})
}

func (w *StateCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Cleanup()
		}
	}
}

// Cleanup runs one pass and returns the number of states removed.
func (w *StateCleanup) Cleanup() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.states.CleanupExpired(ctx)
	if err != nil {
		w.log.Error("failed to remove expired oauth states", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Debug("removed expired oauth states", zap.Int64("count", count))
	}
	return count
}
