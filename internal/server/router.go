package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter assembles the management API routes with tenant scoping.
func NewRouter(handler *Handler, baseLogger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(tenantContext(baseLogger))
		api.Mount("/source-configs", handler.Routes())
	})

	return r
}
