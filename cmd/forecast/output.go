package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/aristath/pricecast/internal/domain"
	"github.com/aristath/pricecast/internal/modules/forecasting"
	"github.com/aristath/pricecast/internal/modules/reconciliation"
)

// userError turns recoverable data conditions into short messages.
func userError(err error) error {
	var empty *domain.EmptySeriesError
	if errors.As(err, &empty) {
		return fmt.Errorf("no data found for the ticker symbol")
	}
	if errors.Is(err, forecasting.ErrSymbolRequired) {
		return fmt.Errorf("please enter a ticker symbol")
	}
	return err
}

// writeResult prints the reconciled forecast tables, warnings and fit metrics.
func writeResult(out io.Writer, result *forecasting.Result) error {
	fmt.Fprintf(out, "%s  %d observations, last %s, horizon %d\n\n",
		result.Symbol, result.Observations, result.LastObserved.Format(domain.DateLayout), result.Horizon)

	report := result.Report
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "#\tadditive date\tpoint\tlower\tupper\tsequence date\tpoint\t")
	for _, row := range report.Rows() {
		addDate, addPoint, lower, upper := "-", "-", "-", "-"
		if row.Additive != nil {
			addDate = row.Additive.Date
			addPoint = reconciliation.Format(row.Additive.Point)
			lower = reconciliation.FormatOptional(row.Additive.Lower)
			upper = reconciliation.FormatOptional(row.Additive.Upper)
		}
		seqDate, seqPoint := "-", "-"
		if row.Sequence != nil {
			seqDate = row.Sequence.Date
			seqPoint = reconciliation.Format(row.Sequence.Point)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			row.Index, addDate, addPoint, lower, upper, seqDate, seqPoint)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Warnings) > 0 || len(result.Failures) > 0 {
		fmt.Fprintln(out)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w.Error())
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "%s model unavailable (%s): %s\n", f.Model, f.Stage, f.Message)
	}

	if len(result.Metrics) > 0 {
		models := make([]string, 0, len(result.Metrics))
		for m := range result.Metrics {
			models = append(models, m)
		}
		sort.Strings(models)

		fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "model\trmse\tmae\tmape %\tpoints\t")
		for _, m := range models {
			metrics := result.Metrics[m]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t\n", m,
				reconciliation.Format(metrics.RMSE),
				reconciliation.Format(metrics.MAE),
				reconciliation.Format(metrics.MAPE),
				metrics.Points)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}
