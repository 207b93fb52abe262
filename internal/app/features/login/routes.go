// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes mounts the login routes (typically under "/api/v1/login").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/oidc", h.ServeProviders)
	r.Get("/oidc/{provider}", h.ServeOIDCLogin)
	r.Get("/oidc/{provider}/callback", h.ServeOIDCCallback)
	r.Post("/apikey", h.HandleAPIKeyLogin)
	return r
}
