package forecasting

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/additive"
	"github.com/aristath/pricecast/internal/modules/normalization"
	"github.com/aristath/pricecast/internal/modules/reconciliation"
	"github.com/aristath/pricecast/internal/modules/sequence"
)

type stubLoader struct {
	series domain.RawSeries
	err    error
	calls  int32
}

func (l *stubLoader) Load(ctx context.Context, symbol string, start, end time.Time) (domain.RawSeries, error) {
	atomic.AddInt32(&l.calls, 1)
	return l.series, l.err
}

type countingAdditive struct {
	inner *additive.Forecaster
	err   error
	calls int32
}

func (c *countingAdditive) Fit(series normalization.LabeledSeries) (*additive.Model, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Fit(series)
}

type countingSequence struct {
	inner *sequence.Forecaster
	err   error
	calls int32
}

func (c *countingSequence) Fit(ctx context.Context, windows []normalization.Window, scaler normalization.MinMaxScaler) (*sequence.Model, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Fit(ctx, windows, scaler)
}

// businessDaySeries returns n weekday closes with a gentle trend and weekly wiggle.
func businessDaySeries(n int, from time.Time) domain.RawSeries {
	out := make(domain.RawSeries, 0, n)
	d := from
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			i := float64(len(out))
			out = append(out, domain.PricePoint{
				Date:  d,
				Close: 100 + 0.05*i + 2*math.Sin(2*math.Pi*i/5),
			})
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

type fixture struct {
	loader   *stubLoader
	additive *countingAdditive
	sequence *countingSequence
	pipeline *Pipeline
}

func newFixture(series domain.RawSeries) *fixture {
	log := zerolog.Nop()
	seqCfg := sequence.DefaultConfig()
	seqCfg.Hidden1 = 8
	seqCfg.Hidden2 = 8
	seqCfg.BatchSize = 16
	seqCfg.Seed = 42

	f := &fixture{
		loader:   &stubLoader{series: series},
		additive: &countingAdditive{inner: additive.NewForecaster(additive.DefaultConfig(), log)},
		sequence: &countingSequence{inner: sequence.NewForecaster(seqCfg, log)},
	}
	f.pipeline = NewPipeline(
		f.loader,
		normalization.NewNormalizer(60),
		f.additive,
		f.sequence,
		reconciliation.NewReconciler(log),
		DefaultConfig(),
		log,
	)
	f.pipeline.now = func() time.Time { return time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC) }
	return f
}

func TestRun_FullHistoryProducesBothForecasts(t *testing.T) {
	series := businessDaySeries(200, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	f := newFixture(series)

	result, err := f.pipeline.Run(context.Background(), Request{Symbol: " aapl ", Horizon: 10})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", result.Symbol)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, 200, result.Observations)
	assert.Empty(t, result.Failures)

	report := result.Report
	assert.Equal(t, 10, report.Overlap)
	assert.False(t, report.Partial)
	require.NotNil(t, report.AdditiveTable)
	require.NotNil(t, report.SequenceTable)
	assert.Len(t, report.AdditiveTable.Rows, 10)
	assert.Len(t, report.SequenceTable.Rows, 10)

	last := domain.CalendarDay(series.LastDate())
	for _, p := range report.Additive.Points {
		assert.True(t, p.Date.After(last))
		require.True(t, p.HasBounds())
		assert.LessOrEqual(t, *p.Lower, p.Point)
		assert.GreaterOrEqual(t, *p.Upper, p.Point)
	}
	for _, p := range report.Sequence.Points {
		assert.True(t, p.Date.After(last))
		assert.False(t, p.HasBounds())
		wd := p.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}

	require.NotNil(t, result.Charts.Additive)
	require.NotNil(t, result.Charts.Sequence)
	assert.Len(t, result.Charts.Additive.Observed, 30)
	assert.Len(t, result.Charts.Additive.Fitted, 30)
	assert.Len(t, result.Charts.Sequence.Fitted, 30)
	assert.Len(t, result.Charts.Additive.Lower, 10)
	assert.Empty(t, result.Charts.Sequence.Lower)
	assert.Len(t, result.Charts.Additive.SMA, 30)

	assert.Contains(t, result.Metrics, domain.ModelAdditive)
	assert.Contains(t, result.Metrics, domain.ModelSequence)
}

func TestRun_EmptySeriesFitsNothing(t *testing.T) {
	f := newFixture(nil)

	result, err := f.pipeline.Run(context.Background(), Request{Symbol: "NOPE"})
	require.Error(t, err)
	assert.Nil(t, result)

	var empty *domain.EmptySeriesError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "NOPE", empty.Symbol)

	var stage *domain.StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, domain.StageNormalize, stage.Stage)
	assert.True(t, domain.IsRecoverable(err))

	assert.Zero(t, atomic.LoadInt32(&f.additive.calls))
	assert.Zero(t, atomic.LoadInt32(&f.sequence.calls))
}

func TestRun_ShortHistoryFallsBackToAdditive(t *testing.T) {
	series := businessDaySeries(60, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	f := newFixture(series)

	result, err := f.pipeline.Run(context.Background(), Request{Symbol: "SHORT", Horizon: 30})
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.ModelSequence, result.Failures[0].Model)
	assert.Zero(t, atomic.LoadInt32(&f.sequence.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.additive.calls))

	report := result.Report
	assert.True(t, report.Partial)
	assert.Nil(t, report.SequenceTable)
	require.NotNil(t, report.AdditiveTable)
	assert.Len(t, report.AdditiveTable.Rows, 30)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, domain.ModelSequence, report.Warnings[0].Model)
	assert.Equal(t, 0, report.Warnings[0].Returned)

	assert.Nil(t, result.Charts.Sequence)
	assert.NotNil(t, result.Charts.Additive)
}

func TestRun_BothModelsFailing(t *testing.T) {
	series := businessDaySeries(120, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	f := newFixture(series)
	addErr := &domain.FitError{Model: domain.ModelAdditive, Reason: "boom"}
	seqErr := &domain.FitError{Model: domain.ModelSequence, Reason: "bang"}
	f.additive.err = addErr
	f.sequence.err = seqErr

	_, err := f.pipeline.Run(context.Background(), Request{Symbol: "FAIL"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, addErr))
	assert.True(t, errors.Is(err, seqErr))
	assert.False(t, domain.IsRecoverable(err))

	var stage *domain.StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, domain.StageFit, stage.Stage)
	assert.Equal(t, "FAIL", stage.Symbol)
}

func TestRun_BothFailWithShortHistoryUsesFitStage(t *testing.T) {
	// Too short for the sequence window, so that branch fails while preparing windows.
	series := businessDaySeries(40, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	f := newFixture(series)
	f.additive.err = &domain.FitError{Model: domain.ModelAdditive, Reason: "boom"}

	_, err := f.pipeline.Run(context.Background(), Request{Symbol: "FAIL"})

	var stage *domain.StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, domain.StageFit, stage.Stage)
	var insufficient *domain.InsufficientHistoryError
	assert.ErrorAs(t, err, &insufficient)
	assert.Zero(t, atomic.LoadInt32(&f.sequence.calls))
}

func TestRun_LoadFailure(t *testing.T) {
	f := newFixture(nil)
	f.loader.err = &domain.TransportError{Source: "test", Err: errors.New("connection refused")}

	_, err := f.pipeline.Run(context.Background(), Request{Symbol: "AAPL"})

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	var stage *domain.StageError
	require.ErrorAs(t, err, &stage)
	assert.Equal(t, domain.StageLoad, stage.Stage)
	assert.Zero(t, atomic.LoadInt32(&f.additive.calls))
}

func TestRun_RequestValidation(t *testing.T) {
	f := newFixture(nil)

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{name: "blank symbol", req: Request{Symbol: "   "}, want: ErrSymbolRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pipeline.Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	invalid := []Request{
		{Symbol: "AAPL", Horizon: -1},
		{Symbol: "AAPL", Horizon: 366},
		{Symbol: "AAPL", Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, req := range invalid {
		_, err := f.pipeline.Run(context.Background(), req)
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	}
	assert.Zero(t, atomic.LoadInt32(&f.loader.calls))
}

func TestWithDefaults(t *testing.T) {
	now := time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)
	req, err := DefaultConfig().withDefaults(Request{Symbol: "msft"}, now)
	require.NoError(t, err)

	assert.Equal(t, "MSFT", req.Symbol)
	assert.Equal(t, 30, req.Horizon)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), req.End)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), req.Start)
}
