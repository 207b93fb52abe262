// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (usually a client IP).
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration // buckets unused this long are dropped
	stop    chan struct{}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing burst events at once per key, refilled at
// burst per per. A background goroutine drops idle keys until Close is
// called.
func New(burst int, per time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(per / time.Duration(burst)),
		burst:   burst,
		idle:    per * 2,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether one more event for key is allowed now, and
// consumes a token if so.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Peek reports whether an event for key would be allowed, without
// consuming a token.
func (l *Limiter) Peek(key string) bool {
	return l.get(key).Tokens() >= 1
}

// Reset forgets key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.lim
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if now.Sub(b.lastSeen) > l.idle {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
