package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "series_cache_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store("expired", "AAPL", testSeries(), -time.Hour))
	require.NoError(t, repo.Store("fresh", "MSFT", testSeries(), time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM price_series").Scan(&count))
	assert.Equal(t, 1, count)

	entry, err := repo.Get("fresh")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestCleanupJobRun_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	db.Close()

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Error(t, job.Run())
}
