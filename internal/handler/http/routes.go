package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes served by Init.
const (
	healthPath  = "/api/health"
	versionPath = "/api/version"
	pushPath    = "/api/sync/push"
	pullPath    = "/api/sync/pull"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer, h.withTraceID, h.withLogging, withGZip)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Get(healthPath, h.health)
		r.Get(versionPath, h.getServerVersion)
	})

	router.Group(func(r chi.Router) {
		r.Use(h.auth, h.verifyHash)
		r.Post(pushPath, h.push)
		r.Post(pullPath, h.pull)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
