package calculator

import "StochWatch/internal/model"

const (
	// DefaultLookback is the window used for the lowest low / highest high.
	DefaultLookback = 14
	// SmoothPeriod is the SMA length applied to get slow %K and slow %D.
	SmoothPeriod = 3
)

// ComputeStochastic computes the slow stochastic (lookback, 3, 3) for every bar.
// The result has the same length and order as bars. Fields that lack enough
// history, or whose high-low range is zero, are left undefined.
func ComputeStochastic(bars []model.Bar, lookback int) []model.StochRow {
	if lookback < 1 {
		lookback = 1
	}
	n := len(bars)
	rows := make([]model.StochRow, n)
	if n == 0 {
		return rows
	}

	lows := make([]model.Value, n)
	highs := make([]model.Value, n)
	for i, b := range bars {
		lows[i] = model.Some(b.Low)
		highs[i] = model.Some(b.High)
	}
	lowest := RollingMin(lows, lookback)
	highest := RollingMax(highs, lookback)

	rawK := make([]model.Value, n)
	for i, b := range bars {
		rawK[i] = rawPercentK(b.Close, lowest[i], highest[i])
	}
	slowK := RollingMean(rawK, SmoothPeriod)
	slowD := RollingMean(slowK, SmoothPeriod)

	for i := range rows {
		rows[i] = model.StochRow{
			LowestLow:   lowest[i],
			HighestHigh: highest[i],
			RawK:        rawK[i],
			SlowK:       slowK[i],
			SlowD:       slowD[i],
		}
	}
	return rows
}

func rawPercentK(close float64, lowest, highest model.Value) model.Value {
	lo, ok1 := lowest.Get()
	hi, ok2 := highest.Get()
	if !ok1 || !ok2 || hi == lo {
		return model.None()
	}
	return model.Some(100 * (close - lo) / (hi - lo))
}
