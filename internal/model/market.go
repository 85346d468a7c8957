package model

import "time"

// Bar is one daily OHLC record after normalization. All price fields are defined.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// StochRow holds the slow stochastic fields derived for a single bar.
type StochRow struct {
	LowestLow   Value
	HighestHigh Value
	RawK        Value
	SlowK       Value
	SlowD       Value
}
