package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suntyn/sitegen/internal/assetservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *assetservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Regeneration trigger; POST is an alias for clients that refuse
	// side effects on GET.
	r.Get("/generate-sitemap", h.GenerateSitemap)
	r.Post("/generate-sitemap", h.GenerateSitemap)

	r.Get("/generations", h.ListGenerations)
	r.Get("/routes", h.ListRoutes)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
