package additive

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/normalization"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// businessDays returns n consecutive weekday dates starting at start.
func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func linearSeries(n int) normalization.LabeledSeries {
	dates := businessDays(time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), n)
	series := make(normalization.LabeledSeries, n)
	for i, d := range dates {
		series[i] = normalization.LabeledPoint{DS: d, Y: 100 + 0.5*float64(i) + 2*math.Sin(float64(i))}
	}
	return series
}

func newForecaster() *Forecaster {
	return NewForecaster(DefaultConfig(), zerolog.Nop())
}

func TestForecast_UpwardTrendScenario(t *testing.T) {
	series := linearSeries(800)

	model, err := newForecaster().Fit(series)
	require.NoError(t, err)

	set, err := model.Forecast(30, false)
	require.NoError(t, err)
	require.Equal(t, 30, set.Len())
	assert.Equal(t, domain.ModelAdditive, set.Model)

	lastObserved := series[len(series)-1]
	for i, p := range set.Points {
		assert.Equal(t, lastObserved.DS.AddDate(0, 0, i+1), p.Date, "calendar-day index")
		require.True(t, p.HasBounds())
		assert.LessOrEqual(t, *p.Lower, p.Point)
		assert.LessOrEqual(t, p.Point, *p.Upper)
		assert.Greater(t, p.Point, lastObserved.Y-10, "forecast continues from the last level")
	}
	assert.Greater(t, set.Points[29].Point, set.Points[0].Point, "trend continues upward")
	assert.Greater(t, set.Points[29].Point, lastObserved.Y)
}

func TestFit_Deterministic(t *testing.T) {
	series := linearSeries(300)

	m1, err := newForecaster().Fit(series)
	require.NoError(t, err)
	m2, err := newForecaster().Fit(series)
	require.NoError(t, err)

	f1, err := m1.Forecast(30, false)
	require.NoError(t, err)
	f2, err := m2.Forecast(30, false)
	require.NoError(t, err)

	assert.Equal(t, f1.Values(), f2.Values())
}

func TestFit_TooFewPoints(t *testing.T) {
	tests := []struct {
		name   string
		series normalization.LabeledSeries
	}{
		{"empty", nil},
		{"single", normalization.LabeledSeries{{DS: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Y: 10}}},
		{"duplicate date", normalization.LabeledSeries{
			{DS: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Y: 10},
			{DS: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Y: 11},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newForecaster().Fit(tt.series)

			var fitErr *domain.FitError
			require.True(t, errors.As(err, &fitErr))
			assert.Equal(t, domain.ModelAdditive, fitErr.Model)
		})
	}
}

func TestFit_TwoPoints(t *testing.T) {
	series := normalization.LabeledSeries{
		{DS: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Y: 10},
		{DS: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Y: 12},
	}

	model, err := newForecaster().Fit(series)
	require.NoError(t, err)

	set, err := model.Forecast(3, false)
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())
	assert.InDelta(t, 14, set.Points[0].Point, 1e-6)
	assert.InDelta(t, 18, set.Points[2].Point, 1e-6)
}

func TestForecast_IncludeHistory(t *testing.T) {
	series := linearSeries(120)

	model, err := newForecaster().Fit(series)
	require.NoError(t, err)

	set, err := model.Forecast(30, true)
	require.NoError(t, err)
	require.Equal(t, 150, set.Len())

	assert.Equal(t, series[0].DS, set.Points[0].Date)
	assert.Equal(t, series[119].DS, set.Points[119].Date)
	assert.True(t, set.Points[120].Date.After(series[119].DS))

	fitted := model.Fitted()
	require.Len(t, fitted, 120)
	assert.InDelta(t, fitted[10], set.Points[10].Point, 1e-9)
}

func TestForecast_NegativeHorizon(t *testing.T) {
	model, err := newForecaster().Fit(linearSeries(50))
	require.NoError(t, err)

	_, err = model.Forecast(-1, false)
	assert.Error(t, err)

	set, err := model.Forecast(0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestForecast_IntervalsWidenWithHorizon(t *testing.T) {
	model, err := newForecaster().Fit(linearSeries(400))
	require.NoError(t, err)

	set, err := model.Forecast(60, false)
	require.NoError(t, err)

	first := *set.Points[0].Upper - *set.Points[0].Lower
	last := *set.Points[59].Upper - *set.Points[59].Lower
	assert.GreaterOrEqual(t, last, first)
	assert.Greater(t, first, 0.0)
}

func TestFit_RecoversWeeklySeasonality(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(normalization.LabeledSeries, 200)
	for i := range series {
		d := start.AddDate(0, 0, i)
		series[i] = normalization.LabeledPoint{DS: d, Y: 100 + 5*math.Sin(2*math.Pi*epochDays(d)/7)}
	}

	model, err := newForecaster().Fit(series)
	require.NoError(t, err)

	c := model.Components()
	assert.NotContains(t, c.Seasonalities, "yearly", "200 days is too short for yearly seasonality")
	require.Contains(t, c.Seasonalities, "weekly")
	assert.InDelta(t, 5, c.Seasonalities["weekly"], 0.5)
	assert.InDelta(t, 0, c.Slope, 0.05)
}

func TestConfig_SeasonalityGating(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailySeasonality = true

	names := func(s []seasonality) []string {
		var out []string
		for _, x := range s {
			out = append(out, x.name)
		}
		return out
	}

	assert.Equal(t, []string{"yearly", "weekly", "daily"}, names(cfg.seasonalitiesFor(1000)))
	assert.Equal(t, []string{"weekly", "daily"}, names(cfg.seasonalitiesFor(100)))
	assert.Equal(t, []string{"daily"}, names(cfg.seasonalitiesFor(5)))
	assert.Empty(t, cfg.seasonalitiesFor(1))

	cfg.WeeklySeasonality = false
	assert.Equal(t, []string{"yearly", "daily"}, names(cfg.seasonalitiesFor(1000)))
}

func TestPlaceChangepoints(t *testing.T) {
	ts := make([]float64, 100)
	for i := range ts {
		ts[i] = float64(i) / 99
	}

	cps := placeChangepoints(ts, 25, 0.8)
	require.Len(t, cps, 25)
	for i := 1; i < len(cps); i++ {
		assert.Greater(t, cps[i], cps[i-1])
	}
	assert.Greater(t, cps[0], 0.0)
	assert.LessOrEqual(t, cps[len(cps)-1], 0.8)

	assert.Len(t, placeChangepoints(ts[:10], 25, 0.8), 7)
	assert.Empty(t, placeChangepoints(ts[:2], 25, 0.8))
}
