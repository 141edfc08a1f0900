// Package yahoo loads daily closing prices from Yahoo Finance using go-yfinance.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	yfclient "github.com/wnjoon/go-yfinance/pkg/client"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/aristath/pricecast/internal/domain"
)

// DefaultTimeout bounds a single history request.
const DefaultTimeout = 30 * time.Second

const source = "yahoo"

// historyTicker is the part of a go-yfinance ticker the loader uses.
type historyTicker interface {
	History(params models.HistoryParams) ([]models.Bar, error)
	GetHistoryMetadata() *models.ChartMeta
	Close()
}

type tickerFactory func(symbol string) (historyTicker, error)

// Client implements domain.SeriesLoader over go-yfinance daily history.
type Client struct {
	yf        *yfclient.Client
	newTicker tickerFactory
	log       zerolog.Logger
}

// NewClient creates a Yahoo history client sharing one go-yfinance HTTP client across requests.
func NewClient(timeout time.Duration, log zerolog.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	yf, err := yfclient.New(yfclient.WithTimeout(int(math.Ceil(timeout.Seconds()))))
	if err != nil {
		return nil, fmt.Errorf("failed to create yfinance client: %w", err)
	}

	c := &Client{
		yf:  yf,
		log: log.With().Str("client", "yahoo").Logger(),
	}
	c.newTicker = func(symbol string) (historyTicker, error) {
		return ticker.New(symbol, ticker.WithClient(c.yf))
	}
	return c, nil
}

// Close releases the shared HTTP client.
func (c *Client) Close() {
	if c.yf != nil {
		c.yf.Close()
	}
}

type historyResult struct {
	bars []models.Bar
	meta *models.ChartMeta
	err  error
}

// Load fetches adjusted daily closes for symbol over [start, end], both inclusive calendar days.
// Unknown symbols and ranges without sessions yield an empty series and a nil error.
func (c *Client) Load(ctx context.Context, symbol string, start, end time.Time) (domain.RawSeries, error) {
	first := domain.CalendarDay(start)
	last := domain.CalendarDay(end)
	// The chart range end is exclusive, so extend to the end of the last requested day.
	until := last.AddDate(0, 0, 1)

	params := models.HistoryParams{
		Interval:   "1d",
		Start:      &first,
		End:        &until,
		AutoAdjust: true,
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("start", first.Format(domain.DateLayout)).
		Str("end", last.Format(domain.DateLayout)).
		Msg("Fetching history")

	done := make(chan historyResult, 1)
	go func() {
		done <- c.fetch(symbol, params)
	}()

	var res historyResult
	select {
	case <-ctx.Done():
		return nil, &domain.TransportError{Source: source, Err: ctx.Err()}
	case res = <-done:
	}

	if res.err != nil {
		if isNotFound(res.err) {
			c.log.Info().Str("symbol", symbol).Err(res.err).Msg("Symbol not found")
			return domain.RawSeries{}, nil
		}
		return nil, &domain.TransportError{Source: source, Err: res.err}
	}

	series := toSeries(res.bars, res.meta, first, last)
	c.log.Debug().Str("symbol", symbol).Int("points", len(series)).Msg("History loaded")
	return series, nil
}

func (c *Client) fetch(symbol string, params models.HistoryParams) historyResult {
	t, err := c.newTicker(symbol)
	if err != nil {
		return historyResult{err: fmt.Errorf("failed to create ticker: %w", err)}
	}
	defer t.Close()

	bars, err := t.History(params)
	if err != nil {
		return historyResult{err: err}
	}
	return historyResult{bars: bars, meta: t.GetHistoryMetadata()}
}

// toSeries converts bars into a sorted series of calendar-day closes within [first, last].
// Non-positive closes are skipped and the last bar wins for duplicate days.
func toSeries(bars []models.Bar, meta *models.ChartMeta, first, last time.Time) domain.RawSeries {
	var offset time.Duration
	if meta != nil {
		offset = time.Duration(meta.GMTOffset) * time.Second
	}

	byDay := make(map[time.Time]float64, len(bars))
	for _, bar := range bars {
		price := bar.Close
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}
		// Bar times are UTC session opens; the exchange offset recovers the trading date.
		day := domain.CalendarDay(bar.Date.UTC().Add(offset))
		if day.Before(first) || day.After(last) {
			continue
		}
		byDay[day] = price
	}

	series := make(domain.RawSeries, 0, len(byDay))
	for day, price := range byDay {
		series = append(series, domain.PricePoint{Date: day, Close: price})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	return series
}

// isNotFound reports whether err means the symbol or range has no data rather than a transport failure.
func isNotFound(err error) bool {
	if yfclient.IsNotFoundError(err) || yfclient.IsNoDataError(err) || yfclient.IsInvalidSymbolError(err) {
		return true
	}
	var yfErr *yfclient.YFError
	if errors.As(err, &yfErr) {
		return false
	}
	// Chart API errors arrive as plain errors carrying Yahoo's description.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no data found") || strings.Contains(msg, "not found")
}
