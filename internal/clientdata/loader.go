package clientdata

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/rs/zerolog"
)

// CachedLoader decorates a SeriesLoader with the price series cache.
// Only raw observations are cached; models are always fitted per request.
type CachedLoader struct {
	next domain.SeriesLoader
	repo *Repository
	ttl  time.Duration
	log  zerolog.Logger
}

// NewCachedLoader creates a cache-first loader around next.
func NewCachedLoader(next domain.SeriesLoader, repo *Repository, ttl time.Duration, log zerolog.Logger) *CachedLoader {
	return &CachedLoader{
		next: next,
		repo: repo,
		ttl:  ttl,
		log:  log.With().Str("component", "series_cache").Logger(),
	}
}

// Load returns a fresh cached series when present, otherwise loads from the wrapped loader.
// When the provider is unreachable, a stale entry is returned instead of the transport error.
func (l *CachedLoader) Load(ctx context.Context, symbol string, start, end time.Time) (domain.RawSeries, error) {
	key := Fingerprint(symbol, start, end)

	cached, err := l.repo.GetIfFresh(key)
	if err != nil {
		l.log.Warn().Err(err).Str("symbol", symbol).Msg("Cache read failed, loading from provider")
		if errors.Is(err, ErrCorruptEntry) {
			l.evict(key, symbol)
		}
	} else if cached != nil {
		l.log.Debug().Str("symbol", symbol).Int("points", len(cached)).Msg("Using cached series")
		return cached, nil
	}

	series, err := l.next.Load(ctx, symbol, start, end)
	if err != nil {
		var transportErr *domain.TransportError
		if errors.As(err, &transportErr) {
			if entry, getErr := l.repo.Get(key); getErr == nil && entry != nil && len(entry.Series) > 0 {
				l.log.Warn().
					Err(err).
					Str("symbol", symbol).
					Time("fetched_at", entry.FetchedAt).
					Msg("Provider unreachable, serving stale series")
				return entry.Series, nil
			}
		}
		return nil, err
	}

	// Empty results are not cached so a newly listed symbol is picked up on the next request.
	if len(series) > 0 {
		if err := l.repo.Store(key, symbol, series, TTLFor(end, time.Now(), l.ttl)); err != nil {
			l.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache series")
		}
	}

	return series, nil
}

// evict drops an undecodable entry so it is neither served stale nor read again.
func (l *CachedLoader) evict(key, symbol string) {
	if err := l.repo.Delete(key); err != nil {
		l.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to evict corrupt cache entry")
		return
	}
	l.log.Info().Str("symbol", symbol).Msg("Evicted corrupt cache entry")
}
