package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/app"
	"github.com/kystlys/stay-engine/internal/config"
	"github.com/kystlys/stay-engine/internal/db"
	"github.com/kystlys/stay-engine/internal/observability"
	"github.com/kystlys/stay-engine/internal/pkg/logger"
)

var version = "dev"

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "stay-engine"})
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OtelEndpoint, version)
	if err != nil {
		zlog.Fatal("failed to set up tracing", zap.Error(err))
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		zlog.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		zlog.Fatal("failed to migrate schema", zap.Error(err))
	}

	container, err := app.NewContainer(ctx, app.Config{
		DBPool:   pool,
		Logger:   zlog,
		Settings: cfg,
	})
	if err != nil {
		zlog.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := container.StaffService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		zlog.Fatal("failed to ensure admin account", zap.Error(err))
	}

	// Side-effect worker stops with ctx
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := container.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("worker stopped", zap.Error(err))
		}
	}()

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		zlog.Info("server running", zap.String("addr", cfg.HTTPAddr), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	zlog.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("server forced to shutdown", zap.Error(err))
	}

	wg.Wait()
	if err := container.Close(); err != nil {
		zlog.Warn("failed to close connections", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zlog.Warn("failed to flush traces", zap.Error(err))
	}

	zlog.Info("server exited gracefully")
}
