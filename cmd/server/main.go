// Package main is the entry point for the pricecast HTTP service.
//
// The service loads daily closing prices, fits an additive trend/seasonality model and a
// recurrent sequence model concurrently, and serves the reconciled forecasts as JSON.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/pricecast/internal/config"
	"github.com/aristath/pricecast/internal/di"
	"github.com/aristath/pricecast/internal/scheduler"
	"github.com/aristath/pricecast/internal/server"
	"github.com/aristath/pricecast/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
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

	log.Info().Str("version", version).Msg("Starting pricecast")

	container, err := di.Wire(cfg, log, true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	sched := scheduler.New(log)
	if _, err := di.RegisterJobs(container, sched, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:            log,
		CacheDB:        container.CacheDB,
		Forecaster:     container.Pipeline,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		RequestTimeout: cfg.RequestTimeout,
		Version:        version,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
