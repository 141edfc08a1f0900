package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/pricecast/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize the cache database (skipped when useCache is false)
// 2. Initialize clients, loader chain and the forecasting pipeline
func Wire(cfg *config.Config, log zerolog.Logger, useCache bool) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	container := &Container{}

	if useCache {
		if err := InitializeDatabases(container, cfg, log); err != nil {
			return nil, fmt.Errorf("failed to initialize databases: %w", err)
		}
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Info().Bool("cache", useCache).Msg("Dependencies wired")
	return container, nil
}
