// internal/app/features/login/oidc.go
package login

// Terminology: User Identifiers
//   - user id: the _id of a user record
//   - auth id: a login identity, "<subject>::<provider>", kept in auth_ids

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/datatracker/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/datatracker/internal/app/store/users"
	"github.com/dalemusser/datatracker/internal/app/system/normalize"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"github.com/dalemusser/datatracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// stateTTL bounds the time between redirecting to a provider and its
// callback.
const stateTTL = 10 * time.Minute

// ServeProviders lists the configured OIDC providers.
//
// Route: GET /login/oidc
func (h *Handler) ServeProviders(w http.ResponseWriter, r *http.Request) {
	h.Resp.JSON(w, http.StatusOK, map[string]any{"providers": h.providerNames()})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login/oidc/{provider}                                                   |
| Starts an authorization code flow with PKCE.                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeOIDCLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := h.providers[normalize.Provider(chi.URLParam(r, "provider"))]
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		respond.Status(w, http.StatusInternalServerError)
		return
	}
	verifier := oauth2.GenerateVerifier()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.StateStore.Save(ctx, oauthstate.State{
		State:     state,
		Provider:  p.Name,
		Verifier:  verifier,
		ReturnURL: query.Get(r, "return"),
		ExpiresAt: time.Now().UTC().Add(stateTTL),
	})
	if err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		respond.Status(w, http.StatusInternalServerError)
		return
	}

	url := p.OAuth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	h.Log.Debug("initiating OIDC flow", zap.String("provider", p.Name))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login/oidc/{provider}/callback                                          |
| Redeems the code, finds or registers the user and starts a session.          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeOIDCCallback(w http.ResponseWriter, r *http.Request) {
	p, ok := h.providers[normalize.Provider(chi.URLParam(r, "provider"))]
	if !ok {
		respond.Status(w, http.StatusNotFound)
		return
	}
	method := "oidc:" + p.Name

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("OIDC provider returned an error",
			zap.String("provider", p.Name),
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		h.Audit.LoginFailed(r.Context(), r, method, "provider error")
		respond.Status(w, http.StatusUnauthorized)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		respond.Status(w, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	st, valid, err := h.StateStore.Consume(ctx, state, p.Name)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		respond.Status(w, http.StatusInternalServerError)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state", zap.String("provider", p.Name))
		respond.Status(w, http.StatusBadRequest)
		return
	}

	token, err := p.OAuth.Exchange(ctx, code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		h.Log.Warn("failed to exchange OAuth code", zap.String("provider", p.Name), zap.Error(err))
		h.Audit.LoginFailed(r.Context(), r, method, "code exchange failed")
		respond.Status(w, http.StatusUnauthorized)
		return
	}

	info, err := fetchUserinfo(ctx, p, token)
	if err != nil {
		h.Log.Error("failed to fetch OIDC user info", zap.String("provider", p.Name), zap.Error(err))
		respond.Status(w, http.StatusInternalServerError)
		return
	}
	if info.Sub == "" || info.Email == "" {
		h.Log.Warn("OIDC user info lacks subject or email", zap.String("provider", p.Name))
		h.Audit.LoginFailed(r.Context(), r, method, "incomplete user info")
		respond.Status(w, http.StatusUnauthorized)
		return
	}

	userID, err := h.resolveUser(ctx, r, info.Sub+"::"+p.Name, info)
	if err != nil {
		h.Log.Error("failed to resolve OIDC user", zap.String("provider", p.Name), zap.Error(err))
		respond.Status(w, http.StatusInternalServerError)
		return
	}

	if err := h.SessionMgr.Login(w, r, userID); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", userID))
		respond.Status(w, http.StatusInternalServerError)
		return
	}
	h.Audit.LoginSuccess(r.Context(), r, userID, method)
	h.Log.Info("user logged in via OIDC",
		zap.String("user_id", userID),
		zap.String("provider", p.Name))

	http.Redirect(w, r, urlutil.SafeReturn(st.ReturnURL, "", "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// userinfo is the subset of the OIDC userinfo response the tracker uses.
type userinfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func fetchUserinfo(ctx context.Context, p Provider, token *oauth2.Token) (*userinfo, error) {
	client := p.OAuth.Client(ctx, token)

	resp, err := client.Get(p.UserinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch user info: unexpected status code %d", resp.StatusCode)
	}

	var info userinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// resolveUser returns the user holding authID. A first login attaches the
// identity to the user registered with the same email, or registers a new
// user. Both changes are logged as made by the system.
func (h *Handler) resolveUser(ctx context.Context, r *http.Request, authID string, info *userinfo) (string, error) {
	u, err := h.users.GetByAuthID(ctx, authID)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, userstore.ErrNotFound) {
		return "", err
	}

	u, err = h.users.GetByEmail(ctx, info.Email)
	switch {
	case err == nil:
		if err := h.users.AddAuthID(ctx, u.ID, authID); err != nil {
			return "", err
		}
		u.AuthIDs = append(u.AuthIDs, authID)
		if err := h.Changes.Log(ctx, "", models.KindUser, models.ActionEdit, "Edit entry to auth_ids to user from OAuth", u.Record()); err != nil {
			return "", err
		}
		h.Audit.OIDCAuthIDAttached(ctx, r, u.ID, authID)
		return u.ID, nil

	case errors.Is(err, userstore.ErrNotFound):
		rec := models.NewUserRecord()
		rec["email"] = normalize.Email(info.Email)
		rec["name"] = normalize.Name(info.Name)
		rec["auth_ids"] = []any{authID}
		if err := h.Changes.Commit(ctx, "", models.KindUser, models.ActionAdd, "Creating new user from OAuth", rec); err != nil {
			return "", err
		}
		h.Audit.OIDCUserProvisioned(ctx, r, rec.ID(), authID)
		return rec.ID(), nil

	default:
		return "", err
	}
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
