// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/dalemusser/datatracker/internal/app/system/ratelimit"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	// DefaultSessionName is the session cookie name.
	DefaultSessionName = "dt_session"

	userIDKey = "user_id"

	// API key headers. The user header holds the user identifier or email.
	HeaderAPIUser = "X-API-User"
	HeaderAPIKey  = "X-API-Key"
)

// ErrNoSessionStore is returned by Login/Logout on a manager that was built
// without a cookie store.
var ErrNoSessionStore = errors.New("session store not configured")

// SessionUser is the authenticated caller attached to the request context.
// It is loaded fresh from the database on every request, so permission
// changes take effect immediately.
type SessionUser struct {
	ID          string
	Name        string
	Email       string
	Permissions []string
	ViaAPIKey   bool
}

// Has reports whether the user holds p, directly or by implication.
func (u *SessionUser) Has(p string) bool {
	if u == nil {
		return false
	}
	return permissions.Has(u.Permissions, p)
}

// APICredentials is what the fetcher returns for an API key check.
type APICredentials struct {
	User *SessionUser
	Hash string
	Salt string
}

// UserFetcher loads users for the session middleware.
// FetchUser returns nil when the user does not exist.
// FetchAPICredentials returns nil when ref (identifier or email) matches no
// user.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
	FetchAPICredentials(ctx context.Context, ref string) *APICredentials
}

// SessionManager owns the cookie store and resolves the caller of each
// request, from the session cookie or from API key headers.
type SessionManager struct {
	store      *sessions.CookieStore
	name       string
	fetcher    UserFetcher
	apiLimiter *ratelimit.Limiter
	audit      *auditlog.Logger
	log        *zap.Logger
}

// NewSessionManager builds a manager with a cookie store keyed by
// sessionKey. ttl is the cookie lifetime. secure marks cookies Secure and
// switches SameSite to None; use secure=false for local http development.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("ttl", ttl))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher sets the source of users. Without one, no request is
// authenticated.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// SetAPIKeyLimiter rate limits failed API key attempts per client IP.
func (sm *SessionManager) SetAPIKeyLimiter(l *ratelimit.Limiter) {
	sm.apiLimiter = l
}

// SetAuditLogger records rejected and rate limited API key attempts.
func (sm *SessionManager) SetAuditLogger(l *auditlog.Logger) {
	sm.audit = l
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser attaches u to the request context, bypassing the session
// middleware. Intended for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login / Logout                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// Login stores userID in the session cookie.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	if sm.store == nil {
		return ErrNoSessionStore
	}
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// Logout clears the session cookie.
func (sm *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	if sm.store == nil {
		return ErrNoSessionStore
	}
	sess, _ := sm.store.Get(r, sm.name)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// HasAPIKeyHeaders reports whether r carries API key credentials.
func HasAPIKeyHeaders(r *http.Request) bool {
	return r.Header.Get(HeaderAPIKey) != "" || r.Header.Get(HeaderAPIUser) != ""
}

// LoadSessionUser resolves the caller and injects it into the context.
//
// Requests with API key headers are authenticated by key only; a wrong key
// is answered 401 and counts against the client's rate limit, which answers
// 429 once exhausted. Otherwise the session cookie is used, and requests
// without a valid session continue anonymously.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sm.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}

		if HasAPIKeyHeaders(r) {
			u, status := sm.apiKeyUser(r)
			if u == nil {
				w.WriteHeader(status)
				return
			}
			next.ServeHTTP(w, withUser(r, u))
			return
		}

		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.log.Debug("session decode failed", zap.Error(err))
		}
		if id, _ := sess.Values[userIDKey].(string); id != "" {
			if u := sm.fetcher.FetchUser(r.Context(), id); u != nil {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (sm *SessionManager) apiKeyUser(r *http.Request) (*SessionUser, int) {
	return sm.AuthenticateAPIKey(r, r.Header.Get(HeaderAPIUser), r.Header.Get(HeaderAPIKey))
}

// AuthenticateAPIKey checks an API key for the user named by ref
// (identifier or email), applying the per-IP limit on failed attempts.
// On failure the user is nil and the status is 401 or 429.
func (sm *SessionManager) AuthenticateAPIKey(r *http.Request, ref, key string) (*SessionUser, int) {
	if sm.fetcher == nil {
		return nil, http.StatusUnauthorized
	}
	ip := ratelimit.ClientIP(r)
	if sm.apiLimiter != nil && !sm.apiLimiter.Peek(ip) {
		sm.log.Warn("api key attempts rate limited", zap.String("ip", ip))
		sm.audit.APIKeyRateLimited(r.Context(), r)
		return nil, http.StatusTooManyRequests
	}

	creds := sm.fetcher.FetchAPICredentials(r.Context(), ref)
	if creds == nil || creds.User == nil || !VerifyAPIKey(creds.Hash, creds.Salt, key) {
		if sm.apiLimiter != nil {
			sm.apiLimiter.Allow(ip)
		}
		sm.log.Info("api key rejected", zap.String("ip", ip), zap.String("api_user", ref))
		sm.audit.APIKeyRejected(r.Context(), r, ref)
		return nil, http.StatusUnauthorized
	}

	if sm.apiLimiter != nil {
		sm.apiLimiter.Reset(ip)
	}
	u := *creds.User
	u.ViaAPIKey = true
	return &u, http.StatusOK
}

// RequireSignedIn answers 401 unless a user is in context.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission answers 401 without a user and 403 unless the user
// holds every listed permission.
func (sm *SessionManager) RequirePermission(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			var granted []string
			if ok {
				granted = u.Permissions
			}
			if status := permissions.Check(required, granted, ok); status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
