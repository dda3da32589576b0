// Package app wires application components and startup helpers.
//
// It provides dependency injection and application initialization.
// The package coordinates between different layers and provides
// a clean application bootstrap process.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/khbroker/internal/adapter/httpserver"
	"github.com/fairyhunter13/khbroker/internal/adapter/observability"
	"github.com/fairyhunter13/khbroker/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"*"}
	}
	if s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Mutating/high-frequency endpoints (prompt submission, check-in,
	// result posting) are rate-limited per-IP.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		wr.Post("/v1/prompts", srv.PromptsHandler())
		wr.Delete("/v1/prompts/{id}", srv.CancelPromptHandler())
		wr.Post("/v1/workers/check-in", srv.WorkerCheckInHandler())
		wr.Post("/v1/generations/{id}/submit", srv.SubmitGenerationHandler())
		wr.Post("/v1/kudos/transfer", srv.KudosTransferHandler())
	})

	r.Get("/v1/prompts/{id}/status", srv.PromptStatusHandler())
	r.Get("/v1/workers", srv.WorkersHandler())
	r.Get("/v1/users/{alias}", srv.UserLookupHandler())
	r.Get("/v1/stats", srv.StatsHandler())

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	if cfg.AdminEnabled() {
		admin, err := httpserver.NewAdminServer(cfg, srv)
		if err == nil {
			r.Post("/admin/token", admin.AdminTokenHandler())
			r.Post("/admin/kudos/grant", admin.AdminBearerRequired(admin.AdminGrantKudosHandler()))
			r.Post("/admin/workers/{name}/purge", admin.AdminBearerRequired(admin.AdminPurgeWorkerHandler()))
		}
	}

	return httpserver.SecurityHeaders(r)
}
