package di

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricecast/internal/clientdata"
	"github.com/aristath/pricecast/internal/clients/yahoo"
	"github.com/aristath/pricecast/internal/config"
	"github.com/aristath/pricecast/internal/database"
	"github.com/aristath/pricecast/internal/scheduler"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:              t.TempDir(),
		YahooTimeout:         time.Second,
		SeriesCacheTTL:       time.Hour,
		CacheCleanupSchedule: "0 0 3 * * *",
		Model: config.ModelConfig{
			HistoryYears:      5,
			Horizon:           30,
			SeasonalityWeekly: true,
			SeasonalityYearly: true,
			IntervalWidth:     0.8,
			WindowSize:        60,
			Epochs:            1,
			BatchSize:         1,
			HiddenUnits:       []int{50, 50},
			LearningRate:      0.001,
		},
	}
}

func TestWire_WithCache(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(cfg, zerolog.Nop(), true)
	require.NoError(t, err)
	defer container.Close()

	require.NotNil(t, container.CacheDB)
	assert.Equal(t, database.ProfileCache, container.CacheDB.Profile())
	assert.FileExists(t, filepath.Join(cfg.DataDir, "cache.db"))
	assert.NotNil(t, container.SeriesRepo)
	assert.IsType(t, &clientdata.CachedLoader{}, container.Loader)
	assert.NotNil(t, container.Pipeline)
	assert.Equal(t, 30, container.Pipeline.Config().DefaultHorizon)
	assert.Equal(t, 60, container.Normalizer.WindowSize())
}

func TestWire_WithoutCache(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop(), false)
	require.NoError(t, err)

	assert.Nil(t, container.CacheDB)
	assert.Nil(t, container.SeriesRepo)
	assert.IsType(t, &yahoo.Client{}, container.Loader)
	assert.Same(t, container.YahooClient, container.Loader)
	assert.NoError(t, container.Close())
}

func TestWire_NilConfig(t *testing.T) {
	_, err := Wire(nil, zerolog.Nop(), true)
	assert.Error(t, err)
}

func TestRegisterJobs(t *testing.T) {
	cfg := testConfig(t)
	container, err := Wire(cfg, zerolog.Nop(), true)
	require.NoError(t, err)
	defer container.Close()

	jobs, err := RegisterJobs(container, scheduler.New(zerolog.Nop()), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "series_cache_cleanup", jobs.CacheCleanup.Name())
	assert.Equal(t, "cache_wal_checkpoint", jobs.WALCheckpoint.Name())
	assert.NoError(t, jobs.CacheCleanup.Run())
	assert.NoError(t, jobs.WALCheckpoint.Run())

	cfg.CacheCleanupSchedule = "bogus"
	_, err = RegisterJobs(container, scheduler.New(zerolog.Nop()), cfg, zerolog.Nop())
	assert.Error(t, err)

	_, err = RegisterJobs(nil, scheduler.New(zerolog.Nop()), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs_CacheDisabled(t *testing.T) {
	cfg := testConfig(t)
	container, err := Wire(cfg, zerolog.Nop(), false)
	require.NoError(t, err)

	jobs, err := RegisterJobs(container, scheduler.New(zerolog.Nop()), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, jobs.CacheCleanup)
}
