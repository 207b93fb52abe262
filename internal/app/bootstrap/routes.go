// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	apiindexfeature "github.com/dalemusser/datatracker/internal/app/features/apiindex"
	auditlogfeature "github.com/dalemusser/datatracker/internal/app/features/auditlog"
	collectionsfeature "github.com/dalemusser/datatracker/internal/app/features/collections"
	datasetsfeature "github.com/dalemusser/datatracker/internal/app/features/datasets"
	developerfeature "github.com/dalemusser/datatracker/internal/app/features/developer"
	healthfeature "github.com/dalemusser/datatracker/internal/app/features/health"
	loginfeature "github.com/dalemusser/datatracker/internal/app/features/login"
	logoutfeature "github.com/dalemusser/datatracker/internal/app/features/logout"
	ordersfeature "github.com/dalemusser/datatracker/internal/app/features/orders"
	projectsfeature "github.com/dalemusser/datatracker/internal/app/features/projects"
	usersfeature "github.com/dalemusser/datatracker/internal/app/features/users"
	auditstore "github.com/dalemusser/datatracker/internal/app/store/audit"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/metrics"
	"github.com/dalemusser/datatracker/internal/app/system/ratelimit"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

// BuildHandler constructs the root HTTP handler for the tracker.
//
// Layout:
//   - /metrics and /health sit outside the API and need no session
//   - /api/v1 resolves the caller (session cookie or API key headers)
//   - /api/v1/login is reachable without a CSRF token so clients can sign
//     in before they hold one; every other API route is CSRF protected for
//     cookie sessions
//   - /api/v1/developer is mounted only when the developer API is enabled
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	// Fresh user data on each request, so permission changes and deletions
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(userstore.New(db)))
	sessionMgr.SetAPIKeyLimiter(ratelimit.New(appCfg.APIKeyBurst, appCfg.APIKeyWindow))
	sessionMgr.SetAuditLogger(audit)

	csrfKey, err := deriveCSRFKey(appCfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	rec := changes.NewRecorder(db, m, logger)
	resp := respond.Normalizer{KeyCase: appCfg.ResponseKeyCase, BaseURL: appCfg.BaseURL}

	r := chi.NewRouter()
	r.Use(m.Middleware)

	r.Handle("/metrics", m.Handler())

	healthHandler := healthfeature.NewHandler(db, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(sessionMgr.LoadSessionUser)

		loginHandler := loginfeature.NewHandler(db, sessionMgr, rec, audit, appCfg.OIDC, appCfg.BaseURL, resp, logger)
		api.Mount("/login", loginfeature.Routes(loginHandler))

		api.Group(func(pr chi.Router) {
			pr.Use(auth.CSRF(csrfKey, secure, appCfg.TrustedOrigins...))

			pr.Mount("/", apiindexfeature.Routes(apiindexfeature.NewHandler(resp)))

			ordersHandler := ordersfeature.NewHandler(db, rec, resp, logger)
			pr.Mount("/order", ordersfeature.Routes(ordersHandler, sessionMgr))

			datasetsHandler := datasetsfeature.NewHandler(db, rec, resp, logger)
			pr.Mount("/dataset", datasetsfeature.Routes(datasetsHandler, sessionMgr))

			collectionsHandler := collectionsfeature.NewHandler(db, rec, resp, logger)
			pr.Mount("/collection", collectionsfeature.Routes(collectionsHandler, sessionMgr))

			projectsHandler := projectsfeature.NewHandler(db, rec, resp, logger)
			pr.Mount("/project", projectsfeature.Routes(projectsHandler, sessionMgr))

			usersHandler := usersfeature.NewHandler(db, rec, audit, resp, logger)
			pr.Mount("/user", usersfeature.Routes(usersHandler, sessionMgr))

			logoutHandler := logoutfeature.NewHandler(sessionMgr, audit, logger)
			pr.Mount("/logout", logoutfeature.Routes(logoutHandler))

			auditHandler := auditlogfeature.NewHandler(auditstore.New(db), resp, logger)
			pr.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

			if appCfg.DevAPI {
				logger.Warn("developer API enabled; never run this way in production")
				devHandler := developerfeature.NewHandler(db, sessionMgr, audit, resp, logger)
				pr.Mount("/developer", developerfeature.Routes(devHandler, sessionMgr))
			}
		})
	})

	return r, nil
}

// deriveCSRFKey returns the 32-byte key gorilla/csrf needs. An explicit
// csrf_key is stretched the same way as the session key fallback.
func deriveCSRFKey(appCfg AppConfig) ([]byte, error) {
	secret := appCfg.CSRFKey
	if secret == "" {
		secret = appCfg.SessionKey
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("datatracker csrf")), key); err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	return key, nil
}
