// Package main is the entry point for the GolfClapp back-office server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golfclapp/backoffice/internal/api"
	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/config"
	"github.com/golfclapp/backoffice/internal/refresh"
	"github.com/golfclapp/backoffice/internal/session"
	"github.com/golfclapp/backoffice/internal/storage"
	"github.com/golfclapp/backoffice/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	addr := flag.String("addr", "", "HTTP server address (overrides listen)")
	dataDir := flag.String("data", "", "Data directory for the audit database (overrides data_dir)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides static_dir)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	cfg.ApplyEnv()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Listen); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}
	logger.Info("starting back-office server", "version", version)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	logger.Info("database ready", "path", db.Path())

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := backoffice.NewClient(cfg.Backoffice())
	logger.Info("using back-office API", "url", client.BaseURL())
	sessions := session.NewManager(store, func(key string) session.API {
		return client.WithAPIKey(key)
	}, session.Options{
		UsersPageSize: cfg.UsersPageSize,
		Logger:        logger,
	})

	// The hub outlives ctx so open sockets can unregister while the
	// server drains.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub()
	go hub.Run(hubCtx)

	if cfg.RefreshEnabled() {
		scheduler := refresh.NewScheduler(sessions, hub, refresh.Options{
			Spec:    cfg.RefreshCron,
			Timeout: cfg.Timeout(),
		}, logger)
		if err := scheduler.Start(); err != nil {
			logger.Warn("refresh scheduler not started", "spec", cfg.RefreshCron, "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	router := api.NewRouter(api.Deps{
		DB:           db,
		Hub:          hub,
		Sessions:     sessions,
		Audit:        storage.NewAuditRepository(db),
		Location:     cfg.Location(),
		StaticDir:    cfg.StaticDir,
		CSRFKey:      []byte(cfg.CSRFKey),
		CookieSecure: cfg.CookieSecure,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.Timeout(),
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Listen)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	websocket.NewEventBroadcaster(hub).NotifyAll("warning", "Server restarting", "The server is shutting down. Reload the page in a moment.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	stopHub()
	return err
}

func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.SessionStore != config.StoreRedis {
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := session.NewRedisStore(ctx, cfg.RedisAddr, session.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
