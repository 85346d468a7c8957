package model

import "time"

// Snapshot is the latest indicator reading for one symbol at request time.
// It is computed fresh on every request and never stored.
type Snapshot struct {
	Symbol     string    `json:"symbol"`
	Close      Value     `json:"close"`
	SlowK      Value     `json:"slow_k"`
	SlowKDelta Value     `json:"slow_k_delta"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// EmptySnapshot returns a snapshot with every numeric field undefined.
func EmptySnapshot(symbol string) Snapshot {
	return Snapshot{Symbol: symbol, FetchedAt: time.Now()}
}
