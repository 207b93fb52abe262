// Package timeouts provides centralized timeout values for handler operations.
//
// Handlers wrap their database work in context.WithTimeout with one of these
// values:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads, existence lookups, session user loads
//   - Medium: list queries, validation with reference lookups, single writes
//   - Long: deletes with cascades, writes touching several collections
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// EnvPrefix prefixes the environment variables read by ConfigureFromEnv.
const EnvPrefix = "DATATRACKER_TIMEOUT_"

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

func get(d *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *d
}

// Ping returns the timeout for health checks.
func Ping() time.Duration { return get(&ping) }

// Short returns the timeout for single-document reads.
func Short() time.Duration { return get(&short) }

// Medium returns the timeout for list queries and single writes.
func Medium() time.Duration { return get(&medium) }

// Long returns the timeout for multi-collection writes such as cascading deletes.
func Long() time.Duration { return get(&long) }

// Config holds timeout configuration values.
// Zero values are ignored (current values are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure sets custom timeout values. Call during startup, before handlers
// are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range []struct {
		dst *time.Duration
		v   time.Duration
	}{{&ping, cfg.Ping}, {&short, cfg.Short}, {&medium, cfg.Medium}, {&long, cfg.Long}} {
		if p.v > 0 {
			*p.dst = p.v
		}
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long = DefaultPing, DefaultShort, DefaultMedium, DefaultLong
}

// ConfigureFromEnv reads DATATRACKER_TIMEOUT_{PING,SHORT,MEDIUM,LONG}
// (Go durations such as "500ms" or "2m"). Unset, invalid or non-positive
// values are skipped. Returns the number of timeouts configured.
func ConfigureFromEnv() int {
	var cfg Config
	configured := 0
	for _, p := range []struct {
		name string
		dst  *time.Duration
	}{{"PING", &cfg.Ping}, {"SHORT", &cfg.Short}, {"MEDIUM", &cfg.Medium}, {"LONG", &cfg.Long}} {
		v := os.Getenv(EnvPrefix + p.name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*p.dst = d
			configured++
		}
	}
	Configure(cfg)
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long}
}

// WithTimeout creates a context with timeout and returns a cancel function that
// logs a warning if the context was canceled due to deadline exceeded.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete dataset")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
