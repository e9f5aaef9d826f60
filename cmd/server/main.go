package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"otm.relay/config"
	"otm.relay/internal/api"
	"otm.relay/internal/logging"
	"otm.relay/internal/metrics"
	"otm.relay/internal/store"
)

var version = "dev"

const gracefulShutdownDuration = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log := logging.Setup(logging.Options{
		Debug:   cfg.Log.Debug,
		JSON:    cfg.Log.JSON,
		Service: cfg.Log.Service,
		Version: version,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	st, err := initStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(cfg.Server.CORSOrigins) == 0 {
		log.Warn("CORS allow-list is empty, every origin is allowed")
	}

	rec := metrics.New()
	srv := api.NewServer(cfg, api.NewHandler(st, rec, log), rec, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := srv.RunInBackground()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.DrainDuration+gracefulShutdownDuration)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	return nil
}

func initStore(cfg *config.Config, log *slog.Logger) (store.Store, error) {
	opts := store.Options{
		PurgeAfter:    cfg.Store.PurgeAfter,
		PurgeInterval: cfg.Store.PurgeInterval,
		Logger:        log,
	}
	log.Info("Opening store", "type", cfg.Store.Type, "purgeAfter", cfg.Store.PurgeAfter)

	switch cfg.Store.Type {
	case config.StoreRedis:
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			PoolSize: cfg.Store.MaxConns,
		}, opts)
		if err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return st, nil
	case config.StoreSQLite:
		st, err := store.NewSQLiteStore(cfg.Store.SQLite.Path, cfg.Store.MaxConns, opts)
		if err != nil {
			return nil, fmt.Errorf("sqlite open failed: %w", err)
		}
		return st, nil
	case config.StorePostgres:
		st, err := store.NewPostgresStore(cfg.Store.Postgres.DSN, cfg.Store.MaxConns, opts)
		if err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		return st, nil
	default:
		return store.NewMemoryStore(opts), nil
	}
}
