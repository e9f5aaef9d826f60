package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"otm.relay/config"
	"otm.relay/internal/metrics"
)

// Server runs the message API and, when configured, a separate metrics
// listener.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	handler *Handler

	srv        *http.Server
	metricsSrv *http.Server
}

func NewServer(cfg *config.Config, h *Handler, m *metrics.Recorder, log *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		handler: h,
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      NewRouter(h, cfg, log),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	if cfg.Server.MetricsAddr != "" {
		s.metricsSrv = m.NewServer(cfg.Server.MetricsAddr)
	}
	return s
}

// RunInBackground starts the listeners. A listener that fails to start or
// dies reports on the returned channel.
func (s *Server) RunInBackground() <-chan error {
	errCh := make(chan error, 2)

	if s.metricsSrv != nil {
		go func() {
			s.log.Info("Starting metrics server", "metricsAddress", s.metricsSrv.Addr)
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	go func() {
		s.log.Info("Starting HTTP server", "listenAddress", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return errCh
}

// Shutdown marks the server not ready, waits out the drain period so load
// balancers notice, then stops both listeners.
func (s *Server) Shutdown(ctx context.Context) {
	if s.handler.SetReady(false) {
		s.log.Info("Server marked as not ready", "drain", s.cfg.Server.DrainDuration)
		select {
		case <-time.After(s.cfg.Server.DrainDuration):
		case <-ctx.Done():
		}
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		s.log.Info("HTTP server gracefully stopped")
	}

	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			s.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			s.log.Info("Metrics server gracefully stopped")
		}
	}
}
