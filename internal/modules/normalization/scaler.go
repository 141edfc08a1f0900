package normalization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler maps observed values onto [0, 1]. Parameters are frozen once fitted.
type MinMaxScaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FitMinMax computes scaling parameters over the whole observed range.
func FitMinMax(values []float64) (MinMaxScaler, error) {
	if len(values) == 0 {
		return MinMaxScaler{}, fmt.Errorf("cannot fit scaler on empty values")
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return MinMaxScaler{}, fmt.Errorf("non-finite value %v at index %d", v, i)
		}
	}
	return MinMaxScaler{Min: floats.Min(values), Max: floats.Max(values)}, nil
}

// Degenerate reports whether every observed value was identical.
func (s MinMaxScaler) Degenerate() bool {
	return s.Max == s.Min
}

// Scale maps x into scaled space. A degenerate scaler maps everything to 0.
func (s MinMaxScaler) Scale(x float64) float64 {
	if s.Degenerate() {
		return 0
	}
	return (x - s.Min) / (s.Max - s.Min)
}

// Unscale maps a scaled value back to price units.
func (s MinMaxScaler) Unscale(v float64) float64 {
	return s.Min + v*(s.Max-s.Min)
}

// ScaleAll scales values into a new slice.
func (s MinMaxScaler) ScaleAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = s.Scale(x)
	}
	return out
}

// UnscaleAll inverts scaled values into a new slice.
func (s MinMaxScaler) UnscaleAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Unscale(v)
	}
	return out
}
