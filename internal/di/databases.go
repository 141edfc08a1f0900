package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/pricecast/internal/config"
	"github.com/aristath/pricecast/internal/database"
)

// InitializeDatabases opens the series cache database and applies its schema
func InitializeDatabases(container *Container, cfg *config.Config, log zerolog.Logger) error {
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache database: %w", err)
	}

	if err := cacheDB.Migrate(); err != nil {
		cacheDB.Close()
		return fmt.Errorf("failed to migrate cache database: %w", err)
	}

	container.CacheDB = cacheDB
	log.Info().
		Str("path", cacheDB.Path()).
		Str("profile", string(cacheDB.Profile())).
		Msg("Cache database initialized")

	return nil
}
