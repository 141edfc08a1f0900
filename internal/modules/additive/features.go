package additive

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

const secondsPerDay = 86400.0

// epochDays returns fractional days since the Unix epoch, the phase reference for seasonal terms.
func epochDays(t time.Time) float64 {
	return float64(t.Unix()) / secondsPerDay
}

// layout describes the column structure of the design matrix:
// intercept, slope, one hinge per changepoint, then sin/cos pairs per seasonality.
type layout struct {
	changepoints  []float64 // scaled time
	seasonalities []seasonality
}

func (l layout) trendCols() int {
	return 2 + len(l.changepoints)
}

func (l layout) cols() int {
	n := l.trendCols()
	for _, s := range l.seasonalities {
		n += 2 * s.order
	}
	return n
}

// row fills dst with the features for one observation at scaled time t and absolute day d.
func (l layout) row(dst []float64, t, d float64) {
	dst[0] = 1
	dst[1] = t
	for j, s := range l.changepoints {
		dst[2+j] = math.Max(t-s, 0)
	}
	col := l.trendCols()
	for _, s := range l.seasonalities {
		for k := 1; k <= s.order; k++ {
			x := 2 * math.Pi * float64(k) * d / s.period
			dst[col] = math.Sin(x)
			dst[col+1] = math.Cos(x)
			col += 2
		}
	}
}

// design builds the n×p design matrix for the given scaled times and absolute days.
func (l layout) design(ts, days []float64) *mat.Dense {
	p := l.cols()
	x := mat.NewDense(len(ts), p, nil)
	buf := make([]float64, p)
	for i := range ts {
		l.row(buf, ts[i], days[i])
		x.SetRow(i, buf)
	}
	return x
}

// placeChangepoints spreads up to max changepoints evenly over the first rangeFrac of ts.
func placeChangepoints(ts []float64, max int, rangeFrac float64) []float64 {
	histSize := int(math.Floor(float64(len(ts)) * rangeFrac))
	n := max
	if n+1 > histSize {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}

	cps := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(n)))
		cps = append(cps, ts[idx])
	}
	return cps
}
