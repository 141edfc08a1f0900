package forecasting

import (
	"math"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/pkg/formulas"
)

// ChartPoint is a single point on a chart
type ChartPoint struct {
	Time  string  `json:"time"`  // YYYY-MM-DD format
	Value float64 `json:"value"`
}

// ModelChart is an observed-vs-predicted series for one model, ready for rendering.
type ModelChart struct {
	Model    string       `json:"model"`
	Observed []ChartPoint `json:"observed"`
	Fitted   []ChartPoint `json:"fitted"`
	Forecast []ChartPoint `json:"forecast"`
	Lower    []ChartPoint `json:"lower,omitempty"`
	Upper    []ChartPoint `json:"upper,omitempty"`
	SMA      []ChartPoint `json:"sma,omitempty"`

	// LatestSMA is the moving average at the last observation, nil when history is shorter than the period.
	LatestSMA *float64 `json:"latest_sma,omitempty"`
}

// Charts holds one chart per available model.
type Charts struct {
	Additive *ModelChart `json:"additive,omitempty"`
	Sequence *ModelChart `json:"sequence,omitempty"`
}

// tail returns the last n points of raw, or all of them.
func tail(raw domain.RawSeries, n int) domain.RawSeries {
	if n <= 0 || n >= len(raw) {
		return raw
	}
	return raw[len(raw)-n:]
}

func toChartPoints(series domain.RawSeries) []ChartPoint {
	out := make([]ChartPoint, len(series))
	for i, p := range series {
		out[i] = ChartPoint{Time: p.Date.Format(domain.DateLayout), Value: p.Close}
	}
	return out
}

// pairWithDates attaches values to the dates of the last len(values) observations.
func pairWithDates(raw domain.RawSeries, values []float64) []ChartPoint {
	dates := tail(raw, len(values))
	out := make([]ChartPoint, len(values))
	for i, v := range values {
		out[i] = ChartPoint{Time: dates[i].Date.Format(domain.DateLayout), Value: v}
	}
	return out
}

// smaOverlay returns the moving average of all closes, restricted to the chart window.
func smaOverlay(raw domain.RawSeries, period, window int) []ChartPoint {
	sma := formulas.SMASeries(raw.Closes(), period)
	if sma == nil {
		return nil
	}
	start := len(raw) - window
	if window <= 0 || start < 0 {
		start = 0
	}

	var out []ChartPoint
	for i := start; i < len(raw); i++ {
		if math.IsNaN(sma[i]) {
			continue
		}
		out = append(out, ChartPoint{Time: raw[i].Date.Format(domain.DateLayout), Value: sma[i]})
	}
	return out
}

func forecastPoints(set *domain.ForecastSet) (points, lower, upper []ChartPoint) {
	for _, p := range set.Points {
		date := p.Date.Format(domain.DateLayout)
		points = append(points, ChartPoint{Time: date, Value: p.Point})
		if p.HasBounds() {
			lower = append(lower, ChartPoint{Time: date, Value: *p.Lower})
			upper = append(upper, ChartPoint{Time: date, Value: *p.Upper})
		}
	}
	return points, lower, upper
}

// buildChart assembles a model chart from the observed tail, the in-sample fit for the same
// dates and the forecast.
func (c Config) buildChart(raw domain.RawSeries, fitted []float64, set *domain.ForecastSet) *ModelChart {
	observed := tail(raw, len(fitted))
	chart := &ModelChart{
		Model:    set.Model,
		Observed: toChartPoints(observed),
		Fitted:   pairWithDates(raw, fitted),
		SMA:      smaOverlay(raw, c.SMAPeriod, len(fitted)),

		LatestSMA: formulas.CalculateSMA(raw.Closes(), c.SMAPeriod),
	}
	chart.Forecast, chart.Lower, chart.Upper = forecastPoints(set)
	return chart
}
