package calculator

import "StochWatch/internal/model"

// RollingMin returns, for each index, the minimum of the trailing window of
// size period ending at that index. The first period-1 entries are undefined,
// as is any window containing an undefined value.
func RollingMin(values []model.Value, period int) []model.Value {
	return rolling(values, period, func(window []model.Value) model.Value {
		lo, _ := window[0].Get()
		for _, w := range window[1:] {
			if v, _ := w.Get(); v < lo {
				lo = v
			}
		}
		return model.Some(lo)
	})
}

// RollingMax is RollingMin for the maximum.
func RollingMax(values []model.Value, period int) []model.Value {
	return rolling(values, period, func(window []model.Value) model.Value {
		hi, _ := window[0].Get()
		for _, w := range window[1:] {
			if v, _ := w.Get(); v > hi {
				hi = v
			}
		}
		return model.Some(hi)
	})
}

// RollingMean returns the simple moving average over a trailing window.
func RollingMean(values []model.Value, period int) []model.Value {
	return rolling(values, period, func(window []model.Value) model.Value {
		sum := 0.0
		for _, w := range window {
			v, _ := w.Get()
			sum += v
		}
		return model.Some(sum / float64(len(window)))
	})
}

// rolling applies fn to every complete, fully defined trailing window.
func rolling(values []model.Value, period int, fn func([]model.Value) model.Value) []model.Value {
	if period < 1 {
		period = 1
	}
	out := make([]model.Value, len(values))
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if !allValid(window) {
			continue
		}
		out[i] = fn(window)
	}
	return out
}

func allValid(values []model.Value) bool {
	for _, v := range values {
		if !v.Valid() {
			return false
		}
	}
	return true
}
