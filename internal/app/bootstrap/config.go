// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/trackerconfig"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the tracker.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: DATATRACKER_MONGO_URI, DATATRACKER_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "config_file", Default: "", Desc: "Tracker settings file (blank searches config.yaml)"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "datatracker", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "datatracker-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "720h", Desc: "Session lifetime (e.g., 24h, 720h)"},

	{Name: "csrf_key", Default: "", Desc: "CSRF token key (blank derives it from session_key)"},
	{Name: "trusted_origins", Default: "", Desc: "Comma-separated origins allowed to send cookie-authenticated writes"},

	{Name: "base_url", Default: "", Desc: "Canonical base URL of the API (e.g., https://tracker.example.org)"},
	{Name: "response_key_case", Default: respond.KeyCaseSnake, Desc: "Response key style: 'snake' or 'camel'"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// API key throttling
	{Name: "apikey_burst", Default: 10, Desc: "API key attempts allowed per client IP per window"},
	{Name: "apikey_window", Default: "1m", Desc: "API key throttling window"},

	{Name: "dev_api", Default: false, Desc: "Mount the developer routes (never in production)"},
	{Name: "dev_testing", Default: false, Desc: "Verbose request logging for development"},
}

// LoadConfig loads WAFFLE core config and app-specific config, then
// overlays the tracker settings file.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, DATATRACKER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DATATRACKER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		ConfigFile:       appValues.String("config_file"),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionTTL:    appValues.Duration("session_ttl", 30*24*time.Hour),

		CSRFKey:        appValues.String("csrf_key"),
		TrustedOrigins: splitList(appValues.String("trusted_origins")),

		BaseURL:         appValues.String("base_url"),
		ResponseKeyCase: appValues.String("response_key_case"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		APIKeyBurst:  appValues.Int("apikey_burst"),
		APIKeyWindow: appValues.Duration("apikey_window", time.Minute),

		DevAPI:     appValues.Bool("dev_api"),
		DevTesting: appValues.Bool("dev_testing"),
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("working directory: %w", err)
	}
	path, err := trackerconfig.Find(appCfg.ConfigFile, wd)
	switch {
	case errors.Is(err, trackerconfig.ErrNotFound):
		logger.Info("no tracker settings file found, using WAFFLE configuration only")
	case err != nil:
		return nil, AppConfig{}, err
	default:
		f, err := trackerconfig.Load(path)
		if err != nil {
			return nil, AppConfig{}, err
		}
		applySettings(&appCfg, f)
		logger.Info("loaded tracker settings", zap.String("path", path), zap.Strings("oidc_providers", f.ProviderNames()))
	}

	return coreCfg, appCfg, nil
}

// applySettings overlays the values set in the settings file. Unset
// values leave the WAFFLE configuration in place; the dev_mode flags can
// only switch helpers on.
func applySettings(appCfg *AppConfig, f *trackerconfig.File) {
	if uri := f.Mongo.URI(); uri != "" {
		appCfg.MongoURI = uri
	}
	if f.Mongo.DB != "" {
		appCfg.MongoDatabase = f.Mongo.DB
	}
	if f.Flask.Secret != "" {
		appCfg.SessionKey = f.Flask.Secret
	}
	if f.BaseURL != "" {
		appCfg.BaseURL = f.BaseURL
	}
	if f.ResponseKeyCase != "" {
		appCfg.ResponseKeyCase = f.ResponseKeyCase
	}
	appCfg.DevAPI = appCfg.DevAPI || f.DevMode.API
	appCfg.DevTesting = appCfg.DevTesting || f.DevMode.Testing
	if len(f.OIDC) > 0 {
		appCfg.OIDC = f.OIDC
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked before connecting. Response key case,
// OIDC provider endpoints and the developer routes are checked here so a
// bad settings file stops startup instead of failing on first request.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	switch appCfg.ResponseKeyCase {
	case "", respond.KeyCaseSnake, respond.KeyCaseCamel:
	default:
		return fmt.Errorf("response_key_case must be %q or %q, got %q", respond.KeyCaseSnake, respond.KeyCaseCamel, appCfg.ResponseKeyCase)
	}
	if appCfg.SessionKey == "" {
		return errors.New("session_key (or flask.secret) must be set")
	}
	if env == "prod" && appCfg.DevAPI {
		return errors.New("the developer API cannot be enabled in production")
	}
	if appCfg.APIKeyBurst <= 0 || appCfg.APIKeyWindow <= 0 {
		return errors.New("apikey_burst and apikey_window must be positive")
	}
	for name, p := range appCfg.OIDC {
		if p.ClientID == "" || p.AuthURL == "" || p.TokenURL == "" || p.UserinfoURL == "" {
			return fmt.Errorf("oidc provider %q needs client_id, auth_url, token_url and userinfo_url", name)
		}
	}
	if len(appCfg.OIDC) > 0 && appCfg.BaseURL == "" {
		return errors.New("base_url is required for OIDC redirect URIs")
	}
	return nil
}
