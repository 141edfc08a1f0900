package domain

import (
	"context"
	"time"
)

// SeriesLoader supplies closing-price history for a symbol over [start, end].
//
// An unknown symbol or a range with no trading data yields an empty series and a nil error.
// Failures to reach the provider are returned as *TransportError.
type SeriesLoader interface {
	Load(ctx context.Context, symbol string, start, end time.Time) (RawSeries, error)
}
