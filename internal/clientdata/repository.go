// Package clientdata provides persistent caching for market-data client responses.
// Price series are stored as msgpack blobs with expiration timestamps for cache-first loading.
package clientdata

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCorruptEntry is returned when a stored payload cannot be decoded.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Entry is a cached price series with its cache metadata.
type Entry struct {
	Symbol    string
	Series    domain.RawSeries
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// seriesPayload is the stored encoding. Dates are unix seconds so decoding is timezone-independent.
type seriesPayload struct {
	Dates  []int64   `msgpack:"d"`
	Closes []float64 `msgpack:"c"`
}

// Repository provides cache operations for price series.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new price series repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Fingerprint creates a deterministic cache key for a (symbol, start, end) request.
// Bounds are reduced to calendar days so repeated requests within a day share an entry.
func Fingerprint(symbol string, start, end time.Time) string {
	combined := strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(symbol)),
		domain.CalendarDay(start).Format(domain.DateLayout),
		domain.CalendarDay(end).Format(domain.DateLayout),
	}, "|")
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:16])
}

func encodeSeries(series domain.RawSeries) ([]byte, error) {
	p := seriesPayload{
		Dates:  make([]int64, len(series)),
		Closes: make([]float64, len(series)),
	}
	for i, pt := range series {
		p.Dates[i] = pt.Date.Unix()
		p.Closes[i] = pt.Close
	}
	return msgpack.Marshal(&p)
}

func decodeSeries(data []byte) (domain.RawSeries, error) {
	var p seriesPayload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if len(p.Dates) != len(p.Closes) {
		return nil, fmt.Errorf("corrupt payload: %d dates, %d closes", len(p.Dates), len(p.Closes))
	}
	series := make(domain.RawSeries, len(p.Dates))
	for i := range p.Dates {
		series[i] = domain.PricePoint{Date: time.Unix(p.Dates[i], 0).UTC(), Close: p.Closes[i]}
	}
	return series, nil
}

// Store saves a series with expiration = now + ttl, replacing any previous entry.
func (r *Repository) Store(key, symbol string, series domain.RawSeries, ttl time.Duration) error {
	data, err := encodeSeries(series)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}

	now := r.now()
	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO price_series (fingerprint, symbol, data, points, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, symbol, data, len(series), now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store series for %s: %w", symbol, err)
	}

	return nil
}

// GetIfFresh returns the series only if expires_at > now.
// Returns nil, nil if the key doesn't exist or the entry is expired.
func (r *Repository) GetIfFresh(key string) (domain.RawSeries, error) {
	entry, err := r.Get(key)
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.Expired(r.now()) {
		return nil, nil
	}
	return entry.Series, nil
}

// Get returns the entry regardless of expiration status.
// Stale data is the fallback when the provider is unreachable.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(key string) (*Entry, error) {
	var (
		symbol    string
		data      []byte
		fetchedAt int64
		expiresAt int64
	)
	err := r.db.QueryRow(
		"SELECT symbol, data, fetched_at, expires_at FROM price_series WHERE fingerprint = ?", key,
	).Scan(&symbol, &data, &fetchedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series %s: %w", key, err)
	}

	series, err := decodeSeries(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal series %s: %w: %w", key, ErrCorruptEntry, err)
	}

	return &Entry{
		Symbol:    symbol,
		Series:    series,
		FetchedAt: time.Unix(fetchedAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM price_series WHERE fingerprint = ?", key); err != nil {
		return fmt.Errorf("failed to delete series %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM price_series WHERE expires_at < ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired series: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
