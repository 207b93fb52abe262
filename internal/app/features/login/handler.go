// internal/app/features/login/handler.go
package login

import (
	"sort"

	"github.com/dalemusser/datatracker/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/auditlog"
	"github.com/dalemusser/datatracker/internal/app/system/auth"
	"github.com/dalemusser/datatracker/internal/app/system/changes"
	"github.com/dalemusser/datatracker/internal/app/system/normalize"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/trackerconfig"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Provider is one configured OpenID Connect login provider.
type Provider struct {
	Name        string
	OAuth       *oauth2.Config
	UserinfoURL string
}

// Handler serves the login endpoints: OIDC login and API key login.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Changes    *changes.Recorder
	Audit      *auditlog.Logger
	StateStore *oauthstate.Store
	Resp       respond.Normalizer

	providers map[string]Provider
	users     *userstore.Store
}

// NewHandler creates the login handler. Callback URLs are built from
// baseURL as <baseURL>/api/v1/login/oidc/<name>/callback. audit may be nil.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	rec *changes.Recorder,
	audit *auditlog.Logger,
	oidc map[string]trackerconfig.OIDCProvider,
	baseURL string,
	resp respond.Normalizer,
	logger *zap.Logger,
) *Handler {
	providers := make(map[string]Provider, len(oidc))
	for key, p := range oidc {
		name := normalize.Provider(key)
		scopes := p.Scopes
		if len(scopes) == 0 {
			scopes = []string{"openid", "profile", "email"}
		}
		providers[name] = Provider{
			Name: name,
			OAuth: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				RedirectURL:  baseURL + "/api/v1/login/oidc/" + name + "/callback",
				Scopes:       scopes,
				Endpoint: oauth2.Endpoint{
					AuthURL:  p.AuthURL,
					TokenURL: p.TokenURL,
				},
			},
			UserinfoURL: p.UserinfoURL,
		}
	}
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		Changes:    rec,
		Audit:      audit,
		StateStore: oauthstate.New(db),
		Resp:       resp,
		providers:  providers,
		users:      userstore.New(db),
	}
}

// providerNames returns the configured provider names, sorted.
func (h *Handler) providerNames() []string {
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
