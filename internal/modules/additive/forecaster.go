// Package additive fits a piecewise-linear trend plus Fourier seasonalities to a
// labeled price series and extrapolates it with uncertainty bounds.
package additive

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/normalization"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// Penalty on intercept and slope; keeps the system positive definite without biasing the trend.
	trendJitter = 1e-10
	// Lower bound on the residual variance (scaled units) used to derive ridge penalties.
	minNoiseVariance = 1e-4
)

// Forecaster fits additive models. It holds configuration only; each Fit returns an independent Model.
type Forecaster struct {
	cfg Config
	log zerolog.Logger
}

// NewForecaster creates an additive forecaster
func NewForecaster(cfg Config, log zerolog.Logger) *Forecaster {
	return &Forecaster{
		cfg: cfg,
		log: log.With().Str("component", "additive_forecaster").Logger(),
	}
}

// Model is a fitted additive decomposition.
type Model struct {
	cfg    Config
	layout layout

	start   time.Time
	last    time.Time
	tSpan   float64 // history span in days
	yScale  float64
	beta    []float64
	sigma   float64 // residual standard deviation, scaled units
	deltaB  float64 // mean absolute changepoint delta, scaled units
	zScore  float64
	history normalization.LabeledSeries
	fitted  []float64
}

// Fit estimates trend and seasonal coefficients by penalised least squares.
// The result depends only on the series and configuration.
func (f *Forecaster) Fit(series normalization.LabeledSeries) (*Model, error) {
	started := time.Now()

	if err := checkSeries(series); err != nil {
		return nil, err
	}

	n := len(series)
	start := series[0].DS
	last := series[n-1].DS
	span := last.Sub(start).Hours() / 24

	ts := make([]float64, n)
	days := make([]float64, n)
	ys := series.Values()
	for i, p := range series {
		ts[i] = p.DS.Sub(start).Hours() / 24 / span
		days[i] = epochDays(p.DS)
	}

	yScale := floats.Norm(ys, math.Inf(1))
	if yScale == 0 {
		yScale = 1
	}
	floats.Scale(1/yScale, ys)

	l := layout{
		changepoints:  placeChangepoints(ts, f.cfg.Changepoints, f.cfg.ChangepointRange),
		seasonalities: f.cfg.seasonalitiesFor(span),
	}
	x := l.design(ts, days)
	y := mat.NewVecDense(n, ys)

	// First pass with unit noise variance gives a residual scale for the ridge penalties.
	beta, err := solveRidge(x, y, f.penalties(l, 1))
	if err != nil {
		return nil, err
	}
	noiseVar := math.Max(residualVariance(x, y, beta), minNoiseVariance)

	beta, err = solveRidge(x, y, f.penalties(l, noiseVar))
	if err != nil {
		return nil, err
	}

	var fitted mat.VecDense
	fitted.MulVec(x, mat.NewVecDense(len(beta), beta))

	m := &Model{
		cfg:     f.cfg,
		layout:  l,
		start:   start,
		last:    last,
		tSpan:   span,
		yScale:  yScale,
		beta:    beta,
		sigma:   math.Sqrt(residualVariance(x, y, beta)),
		zScore:  distuv.UnitNormal.Quantile((1 + f.cfg.IntervalWidth) / 2),
		history: series,
		fitted:  make([]float64, n),
	}
	if deltas := beta[2:l.trendCols()]; len(deltas) > 0 {
		abs := make([]float64, len(deltas))
		for i, d := range deltas {
			abs[i] = math.Abs(d)
		}
		m.deltaB = floats.Sum(abs) / float64(len(abs))
	}
	for i := 0; i < n; i++ {
		m.fitted[i] = fitted.AtVec(i) * yScale
	}

	f.log.Debug().
		Int("points", n).
		Int("changepoints", len(l.changepoints)).
		Int("seasonalities", len(l.seasonalities)).
		Float64("sigma", m.sigma*yScale).
		Dur("duration", time.Since(started)).
		Msg("Additive model fitted")

	return m, nil
}

func checkSeries(series normalization.LabeledSeries) error {
	if len(series) < 2 {
		return &domain.FitError{Model: domain.ModelAdditive, Reason: fmt.Sprintf("need at least 2 distinct dates, got %d points", len(series))}
	}
	for i := 1; i < len(series); i++ {
		if !series[i].DS.After(series[i-1].DS) {
			return &domain.FitError{Model: domain.ModelAdditive, Reason: "dates must be strictly increasing"}
		}
	}
	for _, p := range series {
		if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return &domain.FitError{Model: domain.ModelAdditive, Reason: "non-finite observation"}
		}
	}
	return nil
}

// penalties returns the ridge diagonal: noiseVar/prior² per coefficient group.
func (f *Forecaster) penalties(l layout, noiseVar float64) []float64 {
	p := make([]float64, l.cols())
	p[0], p[1] = trendJitter, trendJitter
	cp := noiseVar / (f.cfg.ChangepointPriorScale * f.cfg.ChangepointPriorScale)
	for j := 2; j < l.trendCols(); j++ {
		p[j] = cp + trendJitter
	}
	season := noiseVar / (f.cfg.SeasonalityPriorScale * f.cfg.SeasonalityPriorScale)
	for j := l.trendCols(); j < len(p); j++ {
		p[j] = season + trendJitter
	}
	return p
}

// solveRidge solves (XᵀX + diag(penalty)) β = Xᵀy by Cholesky factorisation.
func solveRidge(x *mat.Dense, y *mat.VecDense, penalty []float64) ([]float64, error) {
	_, p := x.Dims()

	var a mat.SymDense
	a.SymOuterK(1, x.T())
	for i := 0; i < p; i++ {
		a.SetSym(i, i, a.At(i, i)+penalty[i])
	}

	var rhs mat.VecDense
	rhs.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(&a); !ok {
		return nil, &domain.FitError{Model: domain.ModelAdditive, Reason: "normal equations are not positive definite"}
	}

	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return nil, &domain.FitError{Model: domain.ModelAdditive, Reason: "solve failed", Err: err}
	}
	return mat.Col(nil, 0, &beta), nil
}

func residualVariance(x *mat.Dense, y *mat.VecDense, beta []float64) float64 {
	var r mat.VecDense
	r.MulVec(x, mat.NewVecDense(len(beta), beta))
	r.SubVec(y, &r)
	n := r.Len()
	return mat.Dot(&r, &r) / float64(n)
}

// Forecast extends the model horizon calendar days past the last observation.
// With includeHistory the in-sample fit for every observed date precedes the future points.
func (m *Model) Forecast(horizon int, includeHistory bool) (*domain.ForecastSet, error) {
	if horizon < 0 {
		return nil, fmt.Errorf("horizon must be non-negative, got %d", horizon)
	}

	dates := make([]time.Time, 0, horizon+len(m.history))
	if includeHistory {
		for _, p := range m.history {
			dates = append(dates, p.DS)
		}
	}
	for k := 1; k <= horizon; k++ {
		dates = append(dates, m.last.AddDate(0, 0, k))
	}

	set := &domain.ForecastSet{Model: domain.ModelAdditive, Points: make([]domain.ForecastPoint, len(dates))}
	row := make([]float64, m.layout.cols())
	for i, d := range dates {
		t := d.Sub(m.start).Hours() / 24 / m.tSpan
		m.layout.row(row, t, epochDays(d))
		point := floats.Dot(row, m.beta) * m.yScale

		half := m.zScore * m.stdDev(t) * m.yScale
		set.Points[i] = domain.ForecastPoint{
			Date:  d,
			Point: point,
			Lower: domain.Bound(point - half),
			Upper: domain.Bound(point + half),
		}
	}

	return set, nil
}

// stdDev combines residual noise with trend-change uncertainty that grows beyond the history.
// Future changepoints arrive at the historical rate with Laplace magnitudes of mean deltaB.
func (m *Model) stdDev(t float64) float64 {
	variance := m.sigma * m.sigma
	if t > 1 && len(m.layout.changepoints) > 0 {
		rate := float64(len(m.layout.changepoints))
		h := t - 1
		variance += rate * 2 * m.deltaB * m.deltaB * h * h * h / 3
	}
	return math.Sqrt(variance)
}

// Fitted returns the in-sample predictions in price units, aligned with the training series.
func (m *Model) Fitted() []float64 {
	out := make([]float64, len(m.fitted))
	copy(out, m.fitted)
	return out
}

// LastDate returns the last observed date.
func (m *Model) LastDate() time.Time {
	return m.last
}

// Components describes the fitted decomposition in price units.
type Components struct {
	Intercept     float64            `json:"intercept"`
	Slope         float64            `json:"slope_per_day"`
	Changepoints  []time.Time        `json:"changepoints"`
	Deltas        []float64          `json:"deltas_per_day"`
	Seasonalities map[string]float64 `json:"seasonality_amplitude"`
	ResidualSD    float64            `json:"residual_sd"`
}

// Components exposes trend and seasonal parameters for diagnostics.
func (m *Model) Components() Components {
	perDay := m.yScale / m.tSpan
	c := Components{
		Intercept:     m.beta[0] * m.yScale,
		Slope:         m.beta[1] * perDay,
		Seasonalities: make(map[string]float64, len(m.layout.seasonalities)),
		ResidualSD:    m.sigma * m.yScale,
	}
	for j, cp := range m.layout.changepoints {
		c.Changepoints = append(c.Changepoints, m.start.Add(time.Duration(cp*m.tSpan*24)*time.Hour))
		c.Deltas = append(c.Deltas, m.beta[2+j]*perDay)
	}

	col := m.layout.trendCols()
	for _, s := range m.layout.seasonalities {
		var amp float64
		for k := 0; k < s.order; k++ {
			amp += math.Hypot(m.beta[col], m.beta[col+1])
			col += 2
		}
		c.Seasonalities[s.name] = amp * m.yScale
	}
	return c
}
