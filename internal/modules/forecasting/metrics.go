package forecasting

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics are in-sample fit errors over the chart window, in price units (MAPE in percent).
type Metrics struct {
	RMSE   float64 `json:"rmse"`
	MAE    float64 `json:"mae"`
	MAPE   float64 `json:"mape"`
	Points int     `json:"points"`
}

// computeMetrics compares observed and predicted values of equal length.
func computeMetrics(observed, predicted []float64) (Metrics, bool) {
	if len(observed) == 0 || len(observed) != len(predicted) {
		return Metrics{}, false
	}

	errs := make([]float64, len(observed))
	floats.SubTo(errs, predicted, observed)

	abs := make([]float64, len(errs))
	pct := make([]float64, 0, len(errs))
	for i, e := range errs {
		abs[i] = math.Abs(e)
		if observed[i] != 0 {
			pct = append(pct, abs[i]/math.Abs(observed[i])*100)
		}
	}

	m := Metrics{
		RMSE:   math.Sqrt(floats.Dot(errs, errs) / float64(len(errs))),
		MAE:    stat.Mean(abs, nil),
		Points: len(errs),
	}
	if len(pct) > 0 {
		m.MAPE = stat.Mean(pct, nil)
	}
	return m, true
}
