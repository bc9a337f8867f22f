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

	"github.com/appgrid/catalog-engine/internal/api"
	"github.com/appgrid/catalog-engine/internal/assets"
	"github.com/appgrid/catalog-engine/internal/auth"
	"github.com/appgrid/catalog-engine/internal/catalog"
	"github.com/appgrid/catalog-engine/internal/config"
	"github.com/appgrid/catalog-engine/internal/store"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting catalog-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := store.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize the record store
	records, err := store.NewPostgresStore(initCtx, store.PostgresConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    int32(cfg.Database.MaxOpenConns),
		MaxIdleConns:    int32(cfg.Database.MaxIdleConns),
		RefreshInterval: cfg.Sync.RefreshInterval,
	})
	if err != nil {
		slog.Error("failed to create record store", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Initialize the session store
	sessions, err := auth.NewRedisSessionStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.Info("redis connected successfully")

	// Load the admin credentials provider
	provider, err := auth.LoadStaticProvider(cfg.Auth.CredentialsFile)
	if err != nil {
		slog.Error("failed to load credentials", "file", cfg.Auth.CredentialsFile, "error", err)
		os.Exit(1)
	}

	authenticator := auth.NewAuthenticator(provider, sessions, cfg.Auth.AdminEmails, cfg.Auth.SessionTTL)

	// Initialize the asset store. Without a bucket, uploads land in
	// process memory and are lost on restart; external image URLs are
	// unaffected.
	var assetStore assets.Store
	if cfg.Assets.Bucket != "" {
		assetStore, err = assets.NewS3Store(initCtx, assets.S3Config{
			Region:        cfg.Assets.Region,
			Bucket:        cfg.Assets.Bucket,
			Prefix:        cfg.Assets.Prefix,
			Endpoint:      cfg.Assets.Endpoint,
			AccessKey:     cfg.Assets.AccessKey,
			SecretKey:     cfg.Assets.SecretKey,
			PublicBaseURL: cfg.Assets.PublicBaseURL,
		})
		if err != nil {
			slog.Error("failed to create asset store", "error", err)
			os.Exit(1)
		}
		slog.Info("asset store ready", "bucket", cfg.Assets.Bucket)
	} else {
		slog.Warn("no asset bucket configured, uploads are held in memory")
		assetStore = assets.NewMemoryStore("")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the catalog synchronizer
	sync := catalog.New(records, assetStore)
	sync.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, sync, authenticator, assetStore)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
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

	// Stop the synchronizer and close backing stores
	sync.Stop()

	if err := sessions.Close(); err != nil {
		slog.Error("session store close error", "error", err)
	}
	if err := records.Close(); err != nil {
		slog.Error("record store close error", "error", err)
	}

	slog.Info("catalog-engine stopped")
}
