package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageError_UnwrapsToTypedCause(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	err := &StageError{
		RequestID: "req-1",
		Symbol:    "AAPL",
		Start:     start,
		End:       end,
		Stage:     StageNormalize,
		Err:       &EmptySeriesError{Symbol: "AAPL"},
	}

	var empty *EmptySeriesError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "AAPL", empty.Symbol)

	msg := err.Error()
	assert.Contains(t, msg, "AAPL")
	assert.Contains(t, msg, "2020-01-01")
	assert.Contains(t, msg, "2024-12-31")
	assert.Contains(t, msg, string(StageNormalize))
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"empty series", &EmptySeriesError{}, true},
		{"insufficient history", &InsufficientHistoryError{Have: 10, Need: 61}, true},
		{"wrapped insufficient", fmt.Errorf("prepare: %w", &InsufficientHistoryError{Have: 1, Need: 2}), true},
		{"fit error", &FitError{Model: ModelAdditive, Reason: "singular"}, false},
		{"transport", &TransportError{Source: "yahoo", Err: errors.New("timeout")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRecoverable(tt.err))
		})
	}
}

func TestFitError_Unwrap(t *testing.T) {
	cause := errors.New("matrix not positive definite")
	err := &FitError{Model: ModelAdditive, Reason: "solve", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "additive model fit failed")
}

func TestPartialForecastWarning_Message(t *testing.T) {
	w := &PartialForecastWarning{Model: ModelSequence, Requested: 30, Returned: 25}
	assert.Equal(t, "partial forecast: sequence model returned 25 of 30 points", w.Error())
}
