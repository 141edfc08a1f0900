// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/pricecast/internal/clientdata"
	"github.com/aristath/pricecast/internal/clients/yahoo"
	"github.com/aristath/pricecast/internal/database"
	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/additive"
	"github.com/aristath/pricecast/internal/modules/forecasting"
	"github.com/aristath/pricecast/internal/modules/normalization"
	"github.com/aristath/pricecast/internal/modules/reconciliation"
	"github.com/aristath/pricecast/internal/modules/sequence"
)

// Container holds all application dependencies
type Container struct {
	// Database (nil when the series cache is disabled)
	CacheDB *database.DB

	// Repositories
	SeriesRepo *clientdata.Repository

	// Clients
	YahooClient *yahoo.Client

	// Loader used by the pipeline: the Yahoo client, optionally behind the series cache
	Loader domain.SeriesLoader

	// Forecasting components
	Normalizer         *normalization.Normalizer
	AdditiveForecaster *additive.Forecaster
	SequenceForecaster *sequence.Forecaster
	Reconciler         *reconciliation.Reconciler
	Pipeline           *forecasting.Pipeline
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.YahooClient != nil {
		c.YahooClient.Close()
	}
	if c.CacheDB == nil {
		return nil
	}
	return c.CacheDB.Close()
}
