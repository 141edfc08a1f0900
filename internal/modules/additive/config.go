package additive

// Config controls the additive decomposition. Seasonality flags are fixed per deployment.
type Config struct {
	YearlySeasonality bool
	WeeklySeasonality bool
	DailySeasonality  bool

	YearlyOrder int
	WeeklyOrder int
	DailyOrder  int

	// IntervalWidth is the coverage of the lower/upper bounds, e.g. 0.8 for an 80% interval.
	IntervalWidth float64

	Changepoints          int     // maximum number of potential trend changepoints
	ChangepointRange      float64 // fraction of history in which changepoints are placed
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
}

// DefaultConfig returns the standard daily-data configuration.
func DefaultConfig() Config {
	return Config{
		YearlySeasonality:     true,
		WeeklySeasonality:     true,
		DailySeasonality:      false,
		YearlyOrder:           10,
		WeeklyOrder:           3,
		DailyOrder:            4,
		IntervalWidth:         0.8,
		Changepoints:          25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
	}
}

// Minimum history span, in days, before a seasonality is estimated.
const (
	minYearlySpanDays = 730
	minWeeklySpanDays = 14
	minDailySpanDays  = 2
)

type seasonality struct {
	name   string
	period float64 // days
	order  int
}

// seasonalitiesFor returns the enabled seasonalities that the history span can support.
func (c Config) seasonalitiesFor(spanDays float64) []seasonality {
	var out []seasonality
	if c.YearlySeasonality && c.YearlyOrder > 0 && spanDays >= minYearlySpanDays {
		out = append(out, seasonality{name: "yearly", period: 365.25, order: c.YearlyOrder})
	}
	if c.WeeklySeasonality && c.WeeklyOrder > 0 && spanDays >= minWeeklySpanDays {
		out = append(out, seasonality{name: "weekly", period: 7, order: c.WeeklyOrder})
	}
	if c.DailySeasonality && c.DailyOrder > 0 && spanDays >= minDailySpanDays {
		out = append(out, seasonality{name: "daily", period: 1, order: c.DailyOrder})
	}
	return out
}
