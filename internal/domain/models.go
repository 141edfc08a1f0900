// Package domain provides the core types shared by the forecasting pipeline.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Model names used in forecast sets, warnings and logs.
const (
	ModelAdditive = "additive"
	ModelSequence = "sequence"
)

// DateLayout is the calendar-day format used for display and cache keys.
const DateLayout = "2006-01-02"

// PricePoint is a single observed closing price.
type PricePoint struct {
	Date  time.Time `json:"date" msgpack:"d"`
	Close float64   `json:"close" msgpack:"c"`
}

// RawSeries is a chronologically ordered closing-price history for one symbol.
type RawSeries []PricePoint

// Validate checks that dates are strictly increasing and prices are positive and finite.
func (s RawSeries) Validate() error {
	for i, p := range s {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			return fmt.Errorf("invalid price %v at %s", p.Close, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(s[i-1].Date) {
			return fmt.Errorf("dates not strictly increasing at index %d (%s after %s)",
				i, p.Date.Format(DateLayout), s[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

// Closes returns the closing prices in order.
func (s RawSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// LastDate returns the date of the most recent observation, or the zero time for an empty series.
func (s RawSeries) LastDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// ForecastPoint is one predicted value. Bounds are optional: the sequence model produces none.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Point float64   `json:"point"`
	Lower *float64  `json:"lower,omitempty"`
	Upper *float64  `json:"upper,omitempty"`
}

// HasBounds reports whether both uncertainty bounds are present.
func (p ForecastPoint) HasBounds() bool {
	return p.Lower != nil && p.Upper != nil
}

// ForecastSet is the ordered output of one model for one request.
type ForecastSet struct {
	Model  string          `json:"model"`
	Points []ForecastPoint `json:"points"`
}

// Len returns the number of points, treating a nil set as empty.
func (f *ForecastSet) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}

// Values returns the point estimates in order.
func (f *ForecastSet) Values() []float64 {
	if f == nil {
		return nil
	}
	out := make([]float64, len(f.Points))
	for i, p := range f.Points {
		out[i] = p.Point
	}
	return out
}

// LastDate returns the date of the final point, or the zero time for an empty set.
func (f *ForecastSet) LastDate() time.Time {
	if f.Len() == 0 {
		return time.Time{}
	}
	return f.Points[len(f.Points)-1].Date
}

// Bound returns a pointer to v, for populating optional forecast bounds.
func Bound(v float64) *float64 {
	return &v
}

// CalendarDay truncates t to a timezone-naive calendar day (midnight UTC of its local date).
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
