// Package handlers provides HTTP handlers for forecast requests.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/forecasting"
)

// Forecaster runs forecast requests
type Forecaster interface {
	Run(ctx context.Context, req forecasting.Request) (*forecasting.Result, error)
}

// Handler handles forecast HTTP requests
type Handler struct {
	forecaster Forecaster
	log        zerolog.Logger
}

// NewHandler creates a new forecast handler
func NewHandler(forecaster Forecaster, log zerolog.Logger) *Handler {
	return &Handler{
		forecaster: forecaster,
		log:        log.With().Str("handler", "forecast").Logger(),
	}
}

// forecastBody is the POST payload. "ticker" is accepted as an alias for "symbol".
type forecastBody struct {
	Symbol  string `json:"symbol"`
	Ticker  string `json:"ticker"`
	Horizon int    `json:"horizon"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// HandleGetForecast handles GET /api/forecast/{symbol}
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request, symbol string) {
	query := r.URL.Query()

	horizon := 0
	if horizonStr := query.Get("horizon"); horizonStr != "" {
		parsed, err := strconv.Atoi(horizonStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "horizon must be an integer")
			return
		}
		horizon = parsed
	}

	req, err := buildRequest(symbol, horizon, query.Get("start"), query.Get("end"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.run(w, r, req)
}

// HandlePostForecast handles POST /api/forecast
func (h *Handler) HandlePostForecast(w http.ResponseWriter, r *http.Request) {
	var body forecastBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	symbol := body.Symbol
	if strings.TrimSpace(symbol) == "" {
		symbol = body.Ticker
	}

	req, err := buildRequest(symbol, body.Horizon, body.Start, body.End)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.run(w, r, req)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, req forecasting.Request) {
	result, err := h.forecaster.Run(r.Context(), req)
	if err != nil {
		status, message := classify(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Forecast failed")
		} else {
			h.log.Warn().Err(err).Str("symbol", req.Symbol).Msg("Forecast rejected")
		}
		h.writeError(w, status, message)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp":  time.Now().Format(time.RFC3339),
			"request_id": result.RequestID,
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// classify maps pipeline errors to a status code and a user-facing message.
func classify(err error) (int, string) {
	var (
		reqErr    *forecasting.RequestError
		empty     *domain.EmptySeriesError
		short     *domain.InsufficientHistoryError
		transport *domain.TransportError
	)

	switch {
	case errors.Is(err, forecasting.ErrSymbolRequired):
		return http.StatusBadRequest, "Please enter a ticker symbol"
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.Error()
	case errors.As(err, &empty):
		return http.StatusNotFound, "No data found for the ticker symbol"
	case errors.As(err, &short):
		return http.StatusUnprocessableEntity, short.Error()
	case errors.As(err, &transport):
		return http.StatusBadGateway, "Market data provider is unavailable"
	default:
		return http.StatusInternalServerError, "Failed to generate forecast"
	}
}

func buildRequest(symbol string, horizon int, start, end string) (forecasting.Request, error) {
	req := forecasting.Request{Symbol: symbol, Horizon: horizon}

	var err error
	if req.Start, err = parseDate("start", start); err != nil {
		return req, err
	}
	if req.End, err = parseDate("end", end); err != nil {
		return req, err
	}
	return req, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, &forecasting.RequestError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
