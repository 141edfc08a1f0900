package domain

import (
	"errors"
	"fmt"
	"time"
)

// Stage identifies the pipeline step an error came from.
type Stage string

const (
	StageLoad        Stage = "load"
	StageNormalize   Stage = "normalize"
	StageFitAdditive Stage = "fit_additive"
	StageFitSequence Stage = "fit_sequence"
	// StageFit marks a request where neither model produced a forecast.
	StageFit       Stage = "fit"
	StageReconcile Stage = "reconcile"
)

// EmptySeriesError means the loader returned no observations. Recoverable: shown to the user.
type EmptySeriesError struct {
	Symbol string
}

func (e *EmptySeriesError) Error() string {
	if e.Symbol == "" {
		return "no historical data"
	}
	return fmt.Sprintf("no historical data for %s", e.Symbol)
}

// InsufficientHistoryError means the series is too short for the configured window.
type InsufficientHistoryError struct {
	Have int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: have %d points, need at least %d", e.Have, e.Need)
}

// FitError means a model could not be fitted on the given input.
type FitError struct {
	Model  string
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s model fit failed: %s: %v", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s model fit failed: %s", e.Model, e.Reason)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure to reach the market-data provider. Fatal to the request.
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PartialForecastWarning flags a model that returned fewer points than requested.
// It is attached to reports, never returned as a request failure.
type PartialForecastWarning struct {
	Model     string `json:"model"`
	Requested int    `json:"requested"`
	Returned  int    `json:"returned"`
}

func (w *PartialForecastWarning) Error() string {
	return fmt.Sprintf("partial forecast: %s model returned %d of %d points", w.Model, w.Returned, w.Requested)
}

// StageError carries enough context to reproduce a failed request.
type StageError struct {
	RequestID string
	Symbol    string
	Start     time.Time
	End       time.Time
	Stage     Stage
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("forecast %s for %s [%s..%s] failed at %s: %v",
		e.RequestID, e.Symbol, e.Start.Format(DateLayout), e.End.Format(DateLayout), e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is a user-displayable data condition
// (no data, or too little history) rather than a system failure.
func IsRecoverable(err error) bool {
	var empty *EmptySeriesError
	var short *InsufficientHistoryError
	return errors.As(err, &empty) || errors.As(err, &short)
}
