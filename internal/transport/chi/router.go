package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/garden-ai/garden-catalog/internal/metrics"
)

// NewRouter mounts the API on a chi router with the standard middleware chain.
// DOIs contain a slash, so the DOI routes use a catch-all segment. The search
// route is static and wins over the catch-all.
func NewRouter(s *Server, resolver Resolver, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(resolver))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	r.Route("/gardens", func(r chi.Router) {
		r.Post("/search", s.SearchGardens)
		r.Get("/", s.ListGardens)
		r.Post("/", s.CreateGarden)
		r.Get("/*", s.GetGarden)
		r.Put("/*", s.ReplaceGarden)
		r.Patch("/*", s.PatchGarden)
		r.Delete("/*", s.DeleteGarden)
	})

	r.Route("/entrypoints", func(r chi.Router) {
		r.Post("/", s.CreateEntrypoint)
		r.Get("/*", s.GetEntrypoint)
		r.Put("/*", s.ReplaceEntrypoint)
		r.Delete("/*", s.DeleteEntrypoint)
	})

	r.Get("/status/failed-updates", s.ListFailedUpdates)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}
