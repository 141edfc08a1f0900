package forecasting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/pricecast/internal/domain"
)

// ErrSymbolRequired is returned for a blank ticker symbol.
var ErrSymbolRequired = errors.New("please enter a ticker symbol")

// RequestError describes an invalid request parameter.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Config holds request defaults and chart settings.
type Config struct {
	DefaultHorizon int
	MaxHorizon     int
	HistoryYears   int
	WindowSize     int
	ChartWindow    int // observed points shown on charts
	SMAPeriod      int
}

// DefaultConfig returns a 30-period horizon over 5 years of history.
func DefaultConfig() Config {
	return Config{
		DefaultHorizon: 30,
		MaxHorizon:     365,
		HistoryYears:   5,
		WindowSize:     60,
		ChartWindow:    30,
		SMAPeriod:      20,
	}
}

// Request is one forecast request. Zero values take the configured defaults.
type Request struct {
	Symbol  string    `json:"symbol"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Horizon int       `json:"horizon"`
}

// withDefaults validates req and fills in missing fields.
func (c Config) withDefaults(req Request, now time.Time) (Request, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return req, ErrSymbolRequired
	}

	if req.End.IsZero() {
		req.End = now
	}
	req.End = domain.CalendarDay(req.End)
	if req.Start.IsZero() {
		req.Start = req.End.AddDate(-c.HistoryYears, 0, 0)
	}
	req.Start = domain.CalendarDay(req.Start)
	if !req.Start.Before(req.End) {
		return req, &RequestError{Field: "start", Reason: "must be before end"}
	}

	if req.Horizon == 0 {
		req.Horizon = c.DefaultHorizon
	}
	if req.Horizon < 0 {
		return req, &RequestError{Field: "horizon", Reason: "must be positive"}
	}
	if c.MaxHorizon > 0 && req.Horizon > c.MaxHorizon {
		return req, &RequestError{Field: "horizon", Reason: fmt.Sprintf("must be at most %d", c.MaxHorizon)}
	}

	return req, nil
}
