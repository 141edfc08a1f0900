// Package formulas holds small technical-analysis helpers used for chart overlays.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMASeries returns the simple moving average of closes over length periods,
// aligned with the input. Leading positions without a full window are NaN.
// Returns nil when there is not enough data for a single window.
func SMASeries(closes []float64, length int) []float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}
	if length == 1 {
		out := make([]float64, len(closes))
		copy(out, closes)
		return out
	}

	sma := talib.Sma(closes, length)
	for i := 0; i < length-1 && i < len(sma); i++ {
		sma[i] = math.NaN()
	}
	return sma
}

// CalculateSMA returns the latest simple moving average, or nil if insufficient data.
func CalculateSMA(closes []float64, length int) *float64 {
	series := SMASeries(closes, length)
	if len(series) == 0 || math.IsNaN(series[len(series)-1]) {
		return nil
	}
	result := series[len(series)-1]
	return &result
}
