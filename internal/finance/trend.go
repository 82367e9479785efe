package finance

import "github.com/shopspring/decimal"

var (
	hundred          = decimal.NewFromInt(100)
	forecastUplift   = decimal.RequireFromString("0.08")
	defaultForecastN = 3
)

// Trend is a month-over-month change. BaselineMissing marks a zero or negative
// previous period, in which case Percent is 0 rather than undefined.
type Trend struct {
	Percent         decimal.Decimal `json:"percent"`
	BaselineMissing bool            `json:"baseline_missing"`
}

// TrendPercent is (current − previous) / previous × 100 rounded to two places,
// or 0 when previous is not positive.
func TrendPercent(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(previous).Mul(hundred).DivRound(previous, 2)
}

// ComputeTrend wraps TrendPercent and flags the missing baseline.
func ComputeTrend(current, previous decimal.Decimal) Trend {
	return Trend{
		Percent:         TrendPercent(current, previous),
		BaselineMissing: !previous.IsPositive(),
	}
}

// Forecast estimates next month as avg(last 3) + round(avg × 0.08), rounded to two places.
func Forecast(monthly []decimal.Decimal) decimal.Decimal {
	return ForecastWindow(monthly, defaultForecastN)
}

// ForecastWindow is Forecast over the last window values. With fewer values it
// averages what exists; with none it returns 0.
func ForecastWindow(monthly []decimal.Decimal, window int) decimal.Decimal {
	if window <= 0 {
		window = defaultForecastN
	}
	if len(monthly) == 0 {
		return decimal.Zero
	}
	if len(monthly) > window {
		monthly = monthly[len(monthly)-window:]
	}
	avg := decimal.Avg(monthly[0], monthly[1:]...)
	return avg.Add(avg.Mul(forecastUplift).Round(0)).Round(2)
}
