// Package normalization converts a raw closing-price series into the inputs
// the two forecasters consume: a labeled (ds, y) table and scaled sliding windows.
package normalization

import (
	"fmt"
	"time"

	"github.com/aristath/pricecast/internal/domain"
)

// DefaultWindowSize is the number of past observations each sequence window holds.
const DefaultWindowSize = 60

// LabeledPoint is one (ds, y) observation with a timezone-naive date.
type LabeledPoint struct {
	DS time.Time
	Y  float64
}

// LabeledSeries is the additive model's input. Same length and order as the raw series.
type LabeledSeries []LabeledPoint

// Values returns the y column.
func (s LabeledSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Y
	}
	return out
}

// ScaledSeries holds min-max scaled closes together with the scaler that produced them.
type ScaledSeries struct {
	Values []float64
	Scaler MinMaxScaler
}

// SequenceInput is everything the sequence forecaster needs for one request.
type SequenceInput struct {
	Scaled     ScaledSeries
	Windows    []Window
	LastWindow []float64
	LastDate   time.Time
}

// Normalizer prepares raw series for both forecasters.
type Normalizer struct {
	window int
}

// NewNormalizer creates a normalizer for the given window size. Non-positive sizes use the default.
func NewNormalizer(window int) *Normalizer {
	if window <= 0 {
		window = DefaultWindowSize
	}
	return &Normalizer{window: window}
}

// WindowSize returns the configured window length.
func (n *Normalizer) WindowSize() int {
	return n.window
}

// Label converts raw observations into a labeled series with calendar-day dates.
func (n *Normalizer) Label(raw domain.RawSeries) (LabeledSeries, error) {
	if len(raw) == 0 {
		return nil, &domain.EmptySeriesError{}
	}
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}

	labeled := make(LabeledSeries, len(raw))
	for i, p := range raw {
		labeled[i] = LabeledPoint{DS: domain.CalendarDay(p.Date), Y: p.Close}
	}
	return labeled, nil
}

// PrepareSequence scales the closes and cuts them into training windows.
// A series of W or fewer points cannot form a single window.
func (n *Normalizer) PrepareSequence(raw domain.RawSeries) (*SequenceInput, error) {
	if len(raw) == 0 {
		return nil, &domain.EmptySeriesError{}
	}
	if len(raw) <= n.window {
		return nil, &domain.InsufficientHistoryError{Have: len(raw), Need: n.window + 1}
	}
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}

	closes := raw.Closes()
	scaler, err := FitMinMax(closes)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaled := scaler.ScaleAll(closes)

	windows, err := MakeWindows(scaled, n.window)
	if err != nil {
		return nil, err
	}

	last := make([]float64, n.window)
	copy(last, scaled[len(scaled)-n.window:])

	return &SequenceInput{
		Scaled:     ScaledSeries{Values: scaled, Scaler: scaler},
		Windows:    windows,
		LastWindow: last,
		LastDate:   domain.CalendarDay(raw.LastDate()),
	}, nil
}
