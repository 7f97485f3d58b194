package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bootplan/internal/planservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *planservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Current plan.
	r.Get("/plan", h.GetPlan)
	r.Post("/plan/compile", h.Compile)
	r.Get("/plan/models", h.ListModels)
	r.Get("/plan/models/{name}", h.GetModel)
	r.Get("/plan/mixins", h.ListMixins)
	r.Get("/plan/boot", h.ListBootScripts)

	// History.
	r.Get("/plans", h.History)
	r.Get("/plans/{id}", h.GetSnapshot)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
