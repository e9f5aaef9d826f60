package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"otm.relay/config"
)

func NewRouter(h *Handler, cfg *config.Config, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(newCORS(cfg.Server.CORSOrigins).Handler)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// Health
	r.Get("/health", h.Health)
	r.Get("/livez", h.Livez)
	r.Get("/readyz", h.Readyz)

	if cfg.Server.Pprof {
		log.Info("pprof API enabled")
		r.Mount("/debug", middleware.Profiler())
	}

	// Message routes
	r.Group(func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(rateLimit(cfg.RateLimit))
		}

		r.With(
			middleware.RequestSize(cfg.Server.MaxBodyBytes),
			jsonOnly,
		).Post("/", h.CreateMessage)
		r.Get("/{id}", h.GetMessage)
		r.Delete("/{id}", h.DeleteMessage)
	})

	return r
}
