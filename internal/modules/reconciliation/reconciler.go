// Package reconciliation aligns the two model forecasts by index and formats them for display.
//
// Rows are paired by position, not by date. The additive model walks calendar days and the
// sequence model walks business days, so paired rows can carry different dates.
package reconciliation

import (
	"github.com/aristath/pricecast/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimal places shown for prices.
const DisplayPlaces = 2

// Row is one displayed forecast point, rounded to DisplayPlaces.
type Row struct {
	Date  string   `json:"date"`
	Point float64  `json:"point"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Table is one model's displayed forecast.
type Table struct {
	Model string `json:"model"`
	Rows  []Row  `json:"rows"`
}

// PairedRow joins the nth row of each table. A nil side means that model is unavailable.
type PairedRow struct {
	Index    int  `json:"index"`
	Additive *Row `json:"additive,omitempty"`
	Sequence *Row `json:"sequence,omitempty"`
}

// Report is the reconciled output. The forecast sets keep full precision for further computation.
type Report struct {
	Horizon       int                              `json:"horizon"`
	Overlap       int                              `json:"overlap"`
	AdditiveTable *Table                           `json:"additive,omitempty"`
	SequenceTable *Table                           `json:"sequence,omitempty"`
	Partial       bool                             `json:"partial"`
	Warnings      []*domain.PartialForecastWarning `json:"warnings,omitempty"`

	Additive *domain.ForecastSet `json:"-"`
	Sequence *domain.ForecastSet `json:"-"`
}

// Rows returns the overlapping prefix of both tables paired by index.
func (r *Report) Rows() []PairedRow {
	rows := make([]PairedRow, r.Overlap)
	for i := range rows {
		rows[i].Index = i + 1
		if r.AdditiveTable != nil {
			rows[i].Additive = &r.AdditiveTable.Rows[i]
		}
		if r.SequenceTable != nil {
			rows[i].Sequence = &r.SequenceTable.Rows[i]
		}
	}
	return rows
}

// Reconciler builds reports from the two model outputs.
type Reconciler struct {
	log zerolog.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(log zerolog.Logger) *Reconciler {
	return &Reconciler{log: log.With().Str("component", "reconciler").Logger()}
}

// Reconcile aligns additive and sequence forecasts to a common length.
// A nil set means the model produced nothing; it is reported as a warning and
// does not shorten the other table. Sets are never padded.
func (rc *Reconciler) Reconcile(additive, sequence *domain.ForecastSet, horizon int) *Report {
	report := &Report{
		Horizon:  horizon,
		Additive: additive,
		Sequence: sequence,
	}

	overlap := -1
	for _, set := range []*domain.ForecastSet{additive, sequence} {
		if set == nil {
			continue
		}
		if n := min(set.Len(), horizon); overlap < 0 || n < overlap {
			overlap = n
		}
	}
	report.Overlap = max(overlap, 0)

	check := func(model string, set *domain.ForecastSet) {
		if got := set.Len(); got < horizon {
			w := &domain.PartialForecastWarning{Model: model, Requested: horizon, Returned: got}
			report.Warnings = append(report.Warnings, w)
			rc.log.Warn().
				Str("model", model).
				Int("requested", horizon).
				Int("returned", got).
				Msg("Partial forecast")
		}
	}
	check(domain.ModelAdditive, additive)
	check(domain.ModelSequence, sequence)
	report.Partial = len(report.Warnings) > 0

	if additive != nil {
		report.AdditiveTable = buildTable(additive, report.Overlap)
	}
	if sequence != nil {
		report.SequenceTable = buildTable(sequence, report.Overlap)
	}

	return report
}

func buildTable(set *domain.ForecastSet, n int) *Table {
	t := &Table{Model: set.Model, Rows: make([]Row, n)}
	for i := 0; i < n; i++ {
		p := set.Points[i]
		row := Row{Date: p.Date.Format(domain.DateLayout), Point: Round(p.Point)}
		if p.Lower != nil {
			row.Lower = domain.Bound(Round(*p.Lower))
		}
		if p.Upper != nil {
			row.Upper = domain.Bound(Round(*p.Upper))
		}
		t.Rows[i] = row
	}
	return t
}

// Round rounds v half away from zero to DisplayPlaces.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(DisplayPlaces).InexactFloat64()
}

// Format renders v with exactly DisplayPlaces decimals.
func Format(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(DisplayPlaces)
}

// FormatOptional renders an optional bound, or "-" when absent.
func FormatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return Format(*v)
}
