// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/datatracker/internal/app/store/audit"
	"github.com/dalemusser/datatracker/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, API key checks).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for credential and account administration events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func requestEvent(r *http.Request, category, eventType string, success bool) audit.Event {
	e := audit.Event{
		Category:  category,
		EventType: eventType,
		Success:   success,
	}
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication Events ---

// LoginSuccess logs a successful login. method is "oidc:<provider>",
// "apikey" or "developer".
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, method string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.UserID = userID
	e.Details = map[string]string{"method": method}
	l.Log(ctx, e)
}

// LoginFailed logs a failed login attempt.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, method, reason string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailed, false)
	e.FailureReason = reason
	e.Details = map[string]string{"method": method}
	l.Log(ctx, e)
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLogout, true)
	e.UserID = userID
	l.Log(ctx, e)
}

// APIKeyRejected logs a request carrying API key headers that did not match.
func (l *Logger) APIKeyRejected(ctx context.Context, r *http.Request, apiUser string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventAPIKeyRejected, false)
	e.FailureReason = "api key mismatch"
	e.Details = map[string]string{"api_user": apiUser}
	l.Log(ctx, e)
}

// APIKeyRateLimited logs a request refused because its client exhausted the
// failed-attempt budget.
func (l *Logger) APIKeyRateLimited(ctx context.Context, r *http.Request) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventAPIKeyRateLimited, false)
	e.FailureReason = "rate limit exceeded"
	l.Log(ctx, e)
}

// OIDCUserProvisioned logs a user created on first OIDC login.
func (l *Logger) OIDCUserProvisioned(ctx context.Context, r *http.Request, userID, authID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventOIDCUserProvisioned, true)
	e.UserID = userID
	e.Details = map[string]string{"auth_id": authID}
	l.Log(ctx, e)
}

// OIDCAuthIDAttached logs an OIDC identity attached to an existing user with
// the same email.
func (l *Logger) OIDCAuthIDAttached(ctx context.Context, r *http.Request, userID, authID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventOIDCAuthIDAttached, true)
	e.UserID = userID
	e.Details = map[string]string{"auth_id": authID}
	l.Log(ctx, e)
}

// DeveloperLoginUsed logs a sign-in through the development login route.
func (l *Logger) DeveloperLoginUsed(ctx context.Context, r *http.Request, userID, authID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventDeveloperLoginUsed, true)
	e.UserID = userID
	e.Details = map[string]string{"auth_id": authID}
	l.Log(ctx, e)
}

// --- Admin Events ---

// APIKeyIssued logs a newly generated API key. actorID is empty when the key
// was issued from the admin CLI.
func (l *Logger) APIKeyIssued(ctx context.Context, r *http.Request, actorID, targetUserID string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventAPIKeyIssued, true)
	e.ActorID = actorID
	e.UserID = targetUserID
	l.Log(ctx, e)
}

// UserCreated logs a user added through the API or the admin CLI.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetUserID string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventUserCreated, true)
	e.ActorID = actorID
	e.UserID = targetUserID
	l.Log(ctx, e)
}

// UserUpdated logs changes to a user's account. fieldsChanged is a comma
// separated list.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, targetUserID, fieldsChanged string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventUserUpdated, true)
	e.ActorID = actorID
	e.UserID = targetUserID
	e.Details = map[string]string{"fields_changed": fieldsChanged}
	l.Log(ctx, e)
}

// UserDeleted logs a deleted user.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetUserID string) {
	e := requestEvent(r, audit.CategoryAdmin, audit.EventUserDeleted, true)
	e.ActorID = actorID
	e.UserID = targetUserID
	l.Log(ctx, e)
}

// DatabaseInitialized logs the admin CLI setting up a fresh database.
func (l *Logger) DatabaseInitialized(ctx context.Context, defaultUserID string) {
	e := requestEvent(nil, audit.CategoryAdmin, audit.EventDatabaseInited, true)
	e.UserID = defaultUserID
	l.Log(ctx, e)
}
