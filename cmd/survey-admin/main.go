package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/survey-admin/internal/api"
	"github.com/terra-clan/survey-admin/internal/authoring"
	"github.com/terra-clan/survey-admin/internal/cleanup"
	"github.com/terra-clan/survey-admin/internal/config"
	"github.com/terra-clan/survey-admin/internal/sessions"
	"github.com/terra-clan/survey-admin/internal/starters"
	"github.com/terra-clan/survey-admin/internal/storage"
	"github.com/terra-clan/survey-admin/pkg/client"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting survey-admin",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Survey backend client
	opts := []client.Option{client.WithTimeout(cfg.Backend.Timeout)}
	if cfg.Backend.APIKey != "" {
		opts = append(opts, client.WithAPIKey(cfg.Backend.APIKey))
	}
	backend := client.NewClient(cfg.Backend.URL, opts...)

	// Publication journal
	journal, err := newJournal(initCtx, cfg.Database)
	if err != nil {
		slog.Error("failed to create publication journal", "error", err)
		os.Exit(1)
	}

	// Authoring sessions
	store, err := newSessionStore(initCtx, cfg)
	if err != nil {
		slog.Error("failed to create session store", "error", err)
		os.Exit(1)
	}

	// Load starters
	starterLoader, err := starters.NewLoader()
	if err != nil {
		slog.Error("failed to create starter loader", "error", err)
		os.Exit(1)
	}
	if err := starterLoader.LoadFromDir(cfg.Starters.Dir); err != nil {
		slog.Warn("failed to load starters from dir", "dir", cfg.Starters.Dir, "error", err)
	}

	publisher := authoring.NewPublisher(backend, journal)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start orphan sweeper
	if cfg.Cleanup.Enabled {
		cleanup.NewCleaner(journal, backend, cfg.Cleanup.Interval).Start(ctx)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Dependencies{
		Fetcher:   backend,
		Sessions:  store,
		Starters:  starterLoader,
		Publisher: publisher,
		Journal:   journal,
		PageSize:  cfg.Dashboard.PageSize,
	})
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := store.Close(); err != nil {
		slog.Error("session store close error", "error", err)
	}
	if err := journal.Close(); err != nil {
		slog.Error("journal close error", "error", err)
	}

	slog.Info("survey-admin stopped")
}

// newJournal uses PostgreSQL when a DSN is configured and memory otherwise
func newJournal(ctx context.Context, cfg config.DatabaseConfig) (storage.Journal, error) {
	if cfg.DSN == "" {
		slog.Warn("DATABASE_DSN not set, publication journal is kept in memory")
		return storage.NewMemoryJournal(), nil
	}

	slog.Info("running database migrations")
	journal, err := storage.NewPostgresJournal(ctx, storage.PostgresConfig{
		DSN:          cfg.DSN,
		MaxOpenConns: int32(cfg.MaxOpenConns),
		MaxIdleConns: int32(cfg.MaxIdleConns),
	})
	if err != nil {
		return nil, err
	}
	slog.Info("database connected successfully")
	return journal, nil
}

// newSessionStore uses Redis when an address is configured and memory otherwise
func newSessionStore(ctx context.Context, cfg *config.Config) (sessions.Store, error) {
	if cfg.Redis.Address == "" {
		slog.Info("REDIS_ADDRESS not set, authoring sessions are kept in memory",
			"max_entries", cfg.Sessions.MaxEntries,
			"ttl", cfg.Sessions.TTL,
		)
		return sessions.NewMemoryStore(cfg.Sessions.MaxEntries, cfg.Sessions.TTL), nil
	}

	store, err := sessions.NewRedisStore(ctx, sessions.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Sessions.TTL,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("redis connected successfully", "address", cfg.Redis.Address)
	return store, nil
}
