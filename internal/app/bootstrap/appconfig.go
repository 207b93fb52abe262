// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/datatracker/internal/app/system/trackerconfig"
)

// AppConfig holds service-specific configuration for the tracker.
//
// Values come from WAFFLE's layered config (flags > env > files >
// defaults, env prefix DATATRACKER_) and are then overlaid by the
// tracker's own config.yaml when one is found. CoreConfig keeps the
// framework-level settings: ports, TLS, logging, CORS, body limits.
type AppConfig struct {
	// Settings file overlaid on top of the WAFFLE values ("" = search
	// config.yaml in the working directory and its parent).
	ConfigFile string

	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // signs session cookies (must be strong in production)
	SessionName   string        // cookie name
	SessionDomain string        // blank means current host
	SessionTTL    time.Duration // lifetime of a session cookie

	// CSRF protection for cookie sessions. Blank derives the key from
	// SessionKey.
	CSRFKey        string
	TrustedOrigins []string

	// Canonical base URL of the API, used for resource "url" fields and
	// OIDC redirect URIs.
	BaseURL string

	// Response key style: "snake" (default) or "camel".
	ResponseKeyCase string

	// Audit logging: "all" (db+log), "db", "log" or "off".
	AuditLogAuth  string
	AuditLogAdmin string

	// API key sign-in throttling per client IP.
	APIKeyBurst  int
	APIKeyWindow time.Duration

	// Development helpers
	DevAPI     bool // mount /api/v1/developer
	DevTesting bool // debug logging of request handling

	// OIDC login providers keyed by name.
	OIDC map[string]trackerconfig.OIDCProvider
}
