package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-support/backend/internal/grpcserver"
	"storefront-support/backend/internal/models"
	"storefront-support/backend/pkg/config"
	"storefront-support/backend/pkg/di"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/pkg/router"
	"storefront-support/backend/shared/observability"
)

func main() {
	// Load configuration, reading .env if present
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.LogError(err, "Server stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Info("Starting application", "version", cfg.Server.Version, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.TracingEnabled {
		shutdownTracing, err := observability.SetupTracing(cfg.Telemetry.ServiceName, cfg.Server.Version, os.Stdout)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	// Initialize database
	db, err := config.NewDB(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.CloseDB(db); err != nil {
			log.LogError(err, "Failed to close database")
		}
	}()

	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	container, err := di.New(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(shutdownCtx); err != nil {
			log.LogError(err, "Failed to release dependencies")
		}
	}()

	// Background workers stop when ctx is cancelled
	container.Health.Start(ctx)
	container.RetentionService.Start(ctx, cfg.Chat.RetentionInterval)
	if cfg.Vault.Enabled {
		container.Secrets.StartCacheRefresh(ctx)
	}

	r := router.New(container)
	r.SetupRoutes()
	r.RateLimiter.StartCleanup(ctx, 10*time.Minute)
	go reloadOnHangup(ctx, r, log)

	srv := &http.Server{
		Addr:              cfg.Server.BindAddress,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// replies wait on the model, so writes get the model deadline on top
		WriteTimeout: cfg.Server.Timeout + cfg.LLM.Timeout,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("Server starting", "address", cfg.Server.BindAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpcserver.Server
	if cfg.Server.GRPCPort != "" {
		grpcSrv = grpcserver.New(container.Health, log)
		go func() {
			if err := grpcSrv.ListenAndServe(cfg.Server.GRPCPort); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-errCh:
		log.LogError(err, "Server failed")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
		return err
	}

	log.Info("Server exited gracefully")
	return nil
}

// reloadOnHangup re-reads the OpenAPI schema on SIGHUP until ctx is done
func reloadOnHangup(ctx context.Context, r *router.Router, log *logger.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := r.ReloadSchema(); err != nil {
				log.LogError(err, "Failed to reload OpenAPI schema, keeping the previous one")
			}
		}
	}
}
