// Package main is the entry point for the blend API server.
//
// The server exposes the optimizer over HTTP and, when
// BLEND_REFRESH_SCHEDULE is set, periodically recomputes the split for the
// configured price source so GET /api/blend/latest always has a fresh answer.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/blendopt/internal/config"
	"github.com/aristath/blendopt/internal/modules/blend"
	blendhandlers "github.com/aristath/blendopt/internal/modules/blend/handlers"
	"github.com/aristath/blendopt/internal/modules/prices"
	"github.com/aristath/blendopt/internal/scheduler"
	"github.com/aristath/blendopt/internal/server"
	"github.com/aristath/blendopt/pkg/logger"
)

// getEnv retrieves an environment variable value, returning a fallback if the variable
// is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", getEnv("VERSION", "dev")).
		Str("source", cfg.PricesSource).
		Int("steps", cfg.Steps).
		Msg("Starting blend server")

	cache := blend.NewResultCache()

	// The refresh job is only wired when a schedule is configured; without it
	// the API still answers ad-hoc optimize requests.
	var refreshJob *blend.RefreshJob
	var sched *scheduler.Scheduler
	if cfg.RefreshSchedule != "" {
		if err := scheduler.ValidateSchedule(cfg.RefreshSchedule); err != nil {
			log.Fatal().Err(err).Msg("Invalid refresh schedule")
		}

		loader, err := prices.NewLoader(context.Background(), cfg.PricesSource, prices.LoaderOptions{
			S3:  cfg.S3,
			Log: log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create price loader")
		}

		refreshJob = blend.NewRefreshJob(loader, cache, cfg.Steps, cfg.Workers, log)
		sched = scheduler.New(log)
		if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register refresh job")
		}

		// Prime the cache; a missing source is not fatal, the next run may find it
		if err := sched.RunNow(refreshJob); err != nil {
			log.Warn().Err(err).Msg("Initial blend refresh failed")
		}
		sched.Start()
	}

	var refresher blendhandlers.Refresher
	if refreshJob != nil {
		refresher = refreshJob
	}

	srv := server.New(server.Config{
		Port:  cfg.Port,
		Log:   log,
		Blend: blendhandlers.NewHandler(cache, refresher, cfg.Steps, cfg.Workers, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
