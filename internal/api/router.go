package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linkmark/internal/linkservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *linkservice.Service, defaults ExtractDefaults, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, defaults)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/extract", h.Extract)

	r.Get("/links", h.ListLinks)
	r.Get("/links/search", h.Search)
	r.Get("/backlinks", h.Backlinks)
	r.Get("/stats", h.Stats)
	r.Get("/documents/*", h.GetDocument)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
