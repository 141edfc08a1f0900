package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/pricecast/internal/clientdata"
	"github.com/aristath/pricecast/internal/clients/yahoo"
	"github.com/aristath/pricecast/internal/config"
	"github.com/aristath/pricecast/internal/modules/additive"
	"github.com/aristath/pricecast/internal/modules/forecasting"
	"github.com/aristath/pricecast/internal/modules/normalization"
	"github.com/aristath/pricecast/internal/modules/reconciliation"
	"github.com/aristath/pricecast/internal/modules/sequence"
)

// InitializeServices creates the loader chain and the forecasting pipeline.
// When container.CacheDB is nil the pipeline talks to Yahoo directly.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	yahooClient, err := yahoo.NewClient(cfg.YahooTimeout, log)
	if err != nil {
		return fmt.Errorf("failed to create yahoo client: %w", err)
	}
	container.YahooClient = yahooClient
	container.Loader = container.YahooClient

	if container.CacheDB != nil {
		container.SeriesRepo = clientdata.NewRepository(container.CacheDB.Conn())
		container.Loader = clientdata.NewCachedLoader(container.YahooClient, container.SeriesRepo, cfg.SeriesCacheTTL, log)
	}

	model := cfg.Model
	container.Normalizer = normalization.NewNormalizer(model.WindowSize)
	container.AdditiveForecaster = additive.NewForecaster(model.ToAdditiveConfig(), log)
	container.SequenceForecaster = sequence.NewForecaster(model.ToSequenceConfig(), log)
	container.Reconciler = reconciliation.NewReconciler(log)

	container.Pipeline = forecasting.NewPipeline(
		container.Loader,
		container.Normalizer,
		container.AdditiveForecaster,
		container.SequenceForecaster,
		container.Reconciler,
		model.ToPipelineConfig(),
		log,
	)
	return nil
}
