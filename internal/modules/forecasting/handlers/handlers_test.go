package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/forecasting"
	"github.com/aristath/pricecast/internal/modules/reconciliation"
)

type mockForecaster struct {
	result *forecasting.Result
	err    error
	got    forecasting.Request
	calls  int
}

func (m *mockForecaster) Run(ctx context.Context, req forecasting.Request) (*forecasting.Result, error) {
	m.calls++
	m.got = req
	return m.result, m.err
}

func okResult() *forecasting.Result {
	return &forecasting.Result{
		RequestID: "req-1",
		Symbol:    "AAPL",
		Horizon:   5,
		Report:    &reconciliation.Report{Horizon: 5, Overlap: 5},
	}
}

func TestHandleGetForecast(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	tests := []struct {
		name           string
		query          string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{name: "valid request", query: "?horizon=5", expectedStatus: http.StatusOK},
		{name: "with date range", query: "?start=2024-01-01&end=2024-12-31", expectedStatus: http.StatusOK},
		{name: "bad horizon", query: "?horizon=abc", expectedStatus: http.StatusBadRequest},
		{name: "bad date", query: "?start=01/02/2024", expectedStatus: http.StatusBadRequest},
		{
			name:           "blank symbol",
			err:            forecasting.ErrSymbolRequired,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Please enter a ticker symbol",
		},
		{
			name:           "no data",
			err:            &domain.StageError{Stage: domain.StageNormalize, Err: &domain.EmptySeriesError{Symbol: "AAPL"}},
			expectedStatus: http.StatusNotFound,
			expectedError:  "No data found for the ticker symbol",
		},
		{
			name:           "short history",
			err:            &domain.InsufficientHistoryError{Have: 10, Need: 61},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "provider down",
			err:            &domain.StageError{Stage: domain.StageLoad, Err: &domain.TransportError{Source: "yahoo", Err: errors.New("timeout")}},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "fit failure",
			err:            &domain.FitError{Model: domain.ModelAdditive, Reason: "singular"},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Failed to generate forecast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockForecaster{result: okResult(), err: tt.err}
			if tt.err != nil {
				mock.result = nil
			}
			handler := NewHandler(mock, logger)

			req := httptest.NewRequest("GET", "/api/forecast/AAPL"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.HandleGetForecast(w, req, "AAPL")

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			if tt.expectedStatus == http.StatusOK {
				assert.NotNil(t, response["data"])
				metadata := response["metadata"].(map[string]interface{})
				assert.Equal(t, "req-1", metadata["request_id"])
			}
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, response["error"])
			}
		})
	}
}

func TestHandleGetForecast_PassesParameters(t *testing.T) {
	mock := &mockForecaster{result: okResult()}
	handler := NewHandler(mock, zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/forecast/msft?horizon=7&start=2024-01-02&end=2024-06-28", nil)
	w := httptest.NewRecorder()
	handler.HandleGetForecast(w, req, "msft")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "msft", mock.got.Symbol)
	assert.Equal(t, 7, mock.got.Horizon)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), mock.got.Start)
	assert.Equal(t, time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), mock.got.End)
}

func TestHandlePostForecast(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedSymbol string
	}{
		{name: "symbol", body: `{"symbol":"AAPL","horizon":5}`, expectedStatus: http.StatusOK, expectedSymbol: "AAPL"},
		{name: "ticker alias", body: `{"ticker":"TSLA"}`, expectedStatus: http.StatusOK, expectedSymbol: "TSLA"},
		{name: "invalid json", body: `{"symbol":`, expectedStatus: http.StatusBadRequest},
		{name: "invalid date", body: `{"symbol":"AAPL","end":"yesterday"}`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockForecaster{result: okResult()}
			handler := NewHandler(mock, zerolog.Nop())

			req := httptest.NewRequest("POST", "/api/forecast", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.HandlePostForecast(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedSymbol != "" {
				assert.Equal(t, tt.expectedSymbol, mock.got.Symbol)
			} else {
				assert.Zero(t, mock.calls)
			}
		})
	}
}
