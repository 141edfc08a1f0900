package forecasting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/additive"
	"github.com/aristath/pricecast/internal/modules/normalization"
	"github.com/aristath/pricecast/internal/modules/reconciliation"
	"github.com/aristath/pricecast/internal/modules/sequence"
)

// AdditiveFitter fits the trend and seasonality model.
type AdditiveFitter interface {
	Fit(series normalization.LabeledSeries) (*additive.Model, error)
}

// SequenceFitter trains the recurrent model on scaled windows.
type SequenceFitter interface {
	Fit(ctx context.Context, windows []normalization.Window, scaler normalization.MinMaxScaler) (*sequence.Model, error)
}

// Failure records a model branch that produced no forecast.
type Failure struct {
	Model   string       `json:"model"`
	Stage   domain.Stage `json:"stage"`
	Message string       `json:"message"`
}

// Result is the full outcome of one forecast request.
type Result struct {
	RequestID    string                 `json:"request_id"`
	Symbol       string                 `json:"symbol"`
	Start        time.Time              `json:"start"`
	End          time.Time              `json:"end"`
	Horizon      int                    `json:"horizon"`
	Observations int                    `json:"observations"`
	LastObserved time.Time              `json:"last_observed"`
	Report       *reconciliation.Report `json:"report"`
	Charts       Charts                 `json:"charts"`
	Metrics      map[string]Metrics     `json:"metrics,omitempty"`
	Failures     []Failure              `json:"failures,omitempty"`
	Duration     time.Duration          `json:"duration"`
}

// Pipeline runs load, normalize, both fits and reconciliation for a request.
type Pipeline struct {
	loader     domain.SeriesLoader
	normalizer *normalization.Normalizer
	additive   AdditiveFitter
	sequence   SequenceFitter
	reconciler *reconciliation.Reconciler
	cfg        Config
	now        func() time.Time
	log        zerolog.Logger
}

// NewPipeline creates a forecasting pipeline
func NewPipeline(
	loader domain.SeriesLoader,
	normalizer *normalization.Normalizer,
	add AdditiveFitter,
	seq SequenceFitter,
	reconciler *reconciliation.Reconciler,
	cfg Config,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		loader:     loader,
		normalizer: normalizer,
		additive:   add,
		sequence:   seq,
		reconciler: reconciler,
		cfg:        cfg,
		now:        time.Now,
		log:        log.With().Str("component", "forecast_pipeline").Logger(),
	}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

type additiveOutcome struct {
	model *additive.Model
	set   *domain.ForecastSet
	err   error
}

type sequenceOutcome struct {
	model *sequence.Model
	input *normalization.SequenceInput
	set   *domain.ForecastSet
	stage domain.Stage
	err   error
}

// Run executes a forecast request.
//
// Loading and labeling failures abort before either model is fitted. The two fits run
// concurrently; when exactly one fails the result is partial, when both fail Run returns
// a *domain.StageError joining both causes.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	req, err := p.cfg.withDefaults(req, p.now())
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	log := p.log.With().
		Str("request_id", requestID).
		Str("symbol", req.Symbol).
		Logger()

	stageErr := func(stage domain.Stage, err error) error {
		return &domain.StageError{
			RequestID: requestID,
			Symbol:    req.Symbol,
			Start:     req.Start,
			End:       req.End,
			Stage:     stage,
			Err:       err,
		}
	}

	log.Info().
		Str("start", req.Start.Format(domain.DateLayout)).
		Str("end", req.End.Format(domain.DateLayout)).
		Int("horizon", req.Horizon).
		Msg("Starting forecast")

	raw, err := p.loader.Load(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load series")
		return nil, stageErr(domain.StageLoad, err)
	}

	labeled, err := p.normalizer.Label(raw)
	if err != nil {
		var empty *domain.EmptySeriesError
		if errors.As(err, &empty) {
			empty.Symbol = req.Symbol
		}
		log.Warn().Err(err).Msg("Cannot normalize series")
		return nil, stageErr(domain.StageNormalize, err)
	}

	var (
		wg     sync.WaitGroup
		addOut additiveOutcome
		seqOut sequenceOutcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		addOut = p.runAdditive(labeled, req.Horizon)
	}()
	go func() {
		defer wg.Done()
		seqOut = p.runSequence(ctx, raw, req.Horizon)
	}()
	wg.Wait()

	if addOut.err != nil && seqOut.err != nil {
		log.Error().
			AnErr("additive_error", addOut.err).
			AnErr("sequence_error", seqOut.err).
			Msg("Both models failed")
		return nil, stageErr(domain.StageFit, errors.Join(addOut.err, seqOut.err))
	}

	result := &Result{
		RequestID:    requestID,
		Symbol:       req.Symbol,
		Start:        req.Start,
		End:          req.End,
		Horizon:      req.Horizon,
		Observations: len(raw),
		LastObserved: raw.LastDate(),
		Metrics:      make(map[string]Metrics),
	}

	if addOut.err != nil {
		result.Failures = append(result.Failures, Failure{
			Model:   domain.ModelAdditive,
			Stage:   domain.StageFitAdditive,
			Message: addOut.err.Error(),
		})
		log.Warn().Err(addOut.err).Msg("Additive model failed, continuing with sequence model")
	}
	if seqOut.err != nil {
		result.Failures = append(result.Failures, Failure{
			Model:   domain.ModelSequence,
			Stage:   seqOut.stage,
			Message: seqOut.err.Error(),
		})
		log.Warn().Err(seqOut.err).Msg("Sequence model failed, continuing with additive model")
	}

	result.Report = p.reconciler.Reconcile(addOut.set, seqOut.set, req.Horizon)

	if addOut.model != nil {
		fitted := addOut.model.Fitted()
		fitted = fitted[len(fitted)-min(p.cfg.ChartWindow, len(fitted)):]
		result.Charts.Additive = p.cfg.buildChart(raw, fitted, addOut.set)
		if m, ok := computeMetrics(tail(raw, len(fitted)).Closes(), fitted); ok {
			result.Metrics[domain.ModelAdditive] = m
		}
	}
	if seqOut.model != nil {
		windows := seqOut.input.Windows
		windows = windows[len(windows)-min(p.cfg.ChartWindow, len(windows)):]
		fitted := seqOut.model.PredictWindows(windows)
		result.Charts.Sequence = p.cfg.buildChart(raw, fitted, seqOut.set)
		if m, ok := computeMetrics(tail(raw, len(fitted)).Closes(), fitted); ok {
			result.Metrics[domain.ModelSequence] = m
		}
	}

	result.Duration = time.Since(started)
	log.Info().
		Int("observations", result.Observations).
		Int("overlap", result.Report.Overlap).
		Bool("partial", result.Report.Partial).
		Dur("duration", result.Duration).
		Msg("Forecast completed")

	return result, nil
}

func (p *Pipeline) runAdditive(labeled normalization.LabeledSeries, horizon int) additiveOutcome {
	model, err := p.additive.Fit(labeled)
	if err != nil {
		return additiveOutcome{err: err}
	}
	set, err := model.Forecast(horizon, false)
	if err != nil {
		return additiveOutcome{err: fmt.Errorf("failed to forecast: %w", err)}
	}
	return additiveOutcome{model: model, set: set}
}

func (p *Pipeline) runSequence(ctx context.Context, raw domain.RawSeries, horizon int) sequenceOutcome {
	input, err := p.normalizer.PrepareSequence(raw)
	if err != nil {
		return sequenceOutcome{stage: domain.StageNormalize, err: err}
	}
	model, err := p.sequence.Fit(ctx, input.Windows, input.Scaled.Scaler)
	if err != nil {
		return sequenceOutcome{stage: domain.StageFitSequence, err: err}
	}
	set, err := model.Forecast(input.LastWindow, input.LastDate, horizon)
	if err != nil {
		return sequenceOutcome{stage: domain.StageFitSequence, err: fmt.Errorf("failed to forecast: %w", err)}
	}
	return sequenceOutcome{model: model, input: input, set: set}
}
