// Package api assembles the HTTP router for the tarot reader service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/tarotlab/tarot-reader/internal/api/middleware"
	"github.com/tarotlab/tarot-reader/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler    http.HandlerFunc
	InterpretHandler http.HandlerFunc
	JobStatusHandler http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
// CORS runs outermost so even unmatched routes and preflight checks carry the
// cross-origin headers.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.CORS)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/interpret", orNotImplemented(deps.InterpretHandler))
		r.Get("/api/v1/interpret/{jobID}", orNotImplemented(deps.JobStatusHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
