// Package sequence learns a next-value mapping from sliding windows of scaled
// closes with a two-layer LSTM and forecasts by autoregressive rollout.
package sequence

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/normalization"
	"github.com/rs/zerolog"
)

// Forecaster trains sequence models. It holds configuration only; each Fit returns an independent Model.
type Forecaster struct {
	cfg Config
	log zerolog.Logger
}

// NewForecaster creates a sequence forecaster
func NewForecaster(cfg Config, log zerolog.Logger) *Forecaster {
	return &Forecaster{
		cfg: cfg,
		log: log.With().Str("component", "sequence_forecaster").Logger(),
	}
}

// Config returns the forecaster configuration.
func (f *Forecaster) Config() Config {
	return f.cfg
}

// Model is a trained network together with the scaler frozen at preparation time.
type Model struct {
	net    *network
	scaler normalization.MinMaxScaler
	window int
	loss   float64
	seed   uint64
}

// Fit trains a fresh network on windows. The scaler is stored unchanged for inverting predictions.
// Cancellation is checked between batches.
func (f *Forecaster) Fit(ctx context.Context, windows []normalization.Window, scaler normalization.MinMaxScaler) (*Model, error) {
	if len(windows) == 0 {
		return nil, &domain.FitError{Model: domain.ModelSequence, Reason: "no training windows"}
	}
	w := len(windows[0].History)
	if w == 0 {
		return nil, &domain.FitError{Model: domain.ModelSequence, Reason: "empty window"}
	}
	for i, win := range windows {
		if len(win.History) != w {
			return nil, &domain.FitError{
				Model:  domain.ModelSequence,
				Reason: fmt.Sprintf("window %d has length %d, expected %d", i, len(win.History), w),
			}
		}
	}

	seed := f.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	started := time.Now()
	net := newNetwork(f.cfg.Hidden1, f.cfg.Hidden2, rng)
	grads := net.newGrads()
	params := net.params()
	opt := newAdam(params, f.cfg.LearningRate, f.cfg.Beta1, f.cfg.Beta2, f.cfg.Epsilon)

	batch := f.cfg.BatchSize
	if batch <= 0 {
		batch = 1
	}
	epochs := f.cfg.Epochs
	if epochs <= 0 {
		epochs = 1
	}

	order := make([]int, len(windows))
	for i := range order {
		order[i] = i
	}

	var epochLoss float64
	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var total float64
		for start := 0; start < len(order); start += batch {
			if err := ctx.Err(); err != nil {
				return nil, &domain.FitError{Model: domain.ModelSequence, Reason: "training cancelled", Err: err}
			}

			end := min(start+batch, len(order))
			size := float64(end - start)
			grads.zero()

			for _, idx := range order[start:end] {
				win := windows[idx]
				pred, tr := net.forward(win.History)
				diff := pred - win.Target
				total += diff * diff
				net.backward(tr, 2*diff/size, grads)
			}

			if norm := grads.norm(); f.cfg.ClipNorm > 0 && norm > f.cfg.ClipNorm {
				grads.scale(f.cfg.ClipNorm / norm)
			}
			opt.step(params, grads.slices())
		}

		epochLoss = total / float64(len(order))
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return nil, &domain.FitError{Model: domain.ModelSequence, Reason: fmt.Sprintf("non-finite loss at epoch %d", epoch+1)}
		}

		f.log.Debug().
			Int("epoch", epoch+1).
			Float64("loss", epochLoss).
			Msg("Epoch completed")
	}

	f.log.Debug().
		Int("windows", len(windows)).
		Int("window_size", w).
		Int("epochs", epochs).
		Float64("loss", epochLoss).
		Dur("duration", time.Since(started)).
		Msg("Sequence model fitted")

	return &Model{net: net, scaler: scaler, window: w, loss: epochLoss, seed: seed}, nil
}

// TrainingLoss returns the mean squared error of the final epoch, in scaled units.
func (m *Model) TrainingLoss() float64 {
	return m.loss
}

// Seed returns the seed used for initialisation, so an unseeded fit can be reproduced.
func (m *Model) Seed() uint64 {
	return m.seed
}

// ForecastScaled predicts horizon scaled values by feeding each prediction back as input.
// Errors compound: beyond the first step the window contains predicted rather than observed values.
func (m *Model) ForecastScaled(lastWindow []float64, horizon int) ([]float64, error) {
	if len(lastWindow) != m.window {
		return nil, fmt.Errorf("last window has length %d, expected %d", len(lastWindow), m.window)
	}
	if horizon < 0 {
		return nil, fmt.Errorf("horizon must be non-negative, got %d", horizon)
	}

	window := make([]float64, m.window)
	copy(window, lastWindow)

	out := make([]float64, horizon)
	for step := 0; step < horizon; step++ {
		next := m.net.predict(window)
		out[step] = next
		copy(window, window[1:])
		window[len(window)-1] = next
	}
	return out, nil
}

// Forecast rolls out horizon predictions in price units, dated on the business days after lastDate.
// Sequence forecasts carry no bounds.
func (m *Model) Forecast(lastWindow []float64, lastDate time.Time, horizon int) (*domain.ForecastSet, error) {
	scaled, err := m.ForecastScaled(lastWindow, horizon)
	if err != nil {
		return nil, err
	}

	dates := BusinessDaysAfter(lastDate, horizon)
	set := &domain.ForecastSet{Model: domain.ModelSequence, Points: make([]domain.ForecastPoint, horizon)}
	for i, v := range m.scaler.UnscaleAll(scaled) {
		set.Points[i] = domain.ForecastPoint{Date: dates[i], Point: v}
	}
	return set, nil
}

// PredictWindows returns one-step-ahead predictions in price units, one per window.
func (m *Model) PredictWindows(windows []normalization.Window) []float64 {
	out := make([]float64, len(windows))
	for i, w := range windows {
		out[i] = m.scaler.Unscale(m.net.predict(w.History))
	}
	return out
}

// BusinessDaysAfter returns the next n weekdays strictly after from.
func BusinessDaysAfter(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := domain.CalendarDay(from)
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}
