package collector

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"StochWatch/internal/calculator"
	"StochWatch/internal/metrics"
	"StochWatch/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Responses map[string]*Response
	Errors    map[string]error
	Price     float64 // when > 0, symbols without a fixed response get generated bars

	mu    sync.Mutex
	Calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol, _, _ string) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, symbol)
	m.mu.Unlock()

	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if resp, ok := m.Responses[symbol]; ok {
		return resp, nil
	}
	if m.Price > 0 {
		return &Response{Frame: generateMockFrame(m.Price, 63)}, nil
	}
	return &Response{}, nil
}

func generateMockFrame(basePrice float64, count int) *Frame {
	frame := NewFrame(count)
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i%10-5)*0.004)
		frame.Times[i] = start.AddDate(0, 0, i)
		frame.Set("Open", i, model.Some(p*0.999))
		frame.Set("High", i, model.Some(p*1.005))
		frame.Set("Low", i, model.Some(p*0.995))
		frame.Set("Close", i, model.Some(p))
		frame.Set("Volume", i, model.Some(1000000))
	}
	return frame
}

// Collector turns a symbol into a Snapshot: fetch, normalize, compute, extract.
type Collector struct {
	Fetcher  Fetcher
	Metrics  *metrics.Metrics
	Lookback int
	Period   string
	Interval string
	Workers  int // symbols fetched at once by SnapshotAll; <= 1 means sequential
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, workers int, m *metrics.Metrics) *Collector {
	return &Collector{
		Fetcher:  fetcher,
		Metrics:  m,
		Lookback: calculator.DefaultLookback,
		Period:   DefaultPeriod,
		Interval: DefaultInterval,
		Workers:  workers,
	}
}

// Snapshot fetches the recent daily series for symbol and extracts the latest
// close, slow %K and its day-over-day change. It never fails: any problem
// leaves the affected fields undefined.
func (c *Collector) Snapshot(ctx context.Context, symbol string) model.Snapshot {
	snap, outcome := c.snapshot(ctx, symbol)
	c.Metrics.ObserveSnapshot(outcome)
	return snap
}

func (c *Collector) snapshot(ctx context.Context, symbol string) (model.Snapshot, string) {
	snap := model.EmptySnapshot(symbol)

	start := time.Now()
	resp, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.Period, c.Interval)
	c.Metrics.ObserveFetch(c.Fetcher.Name(), time.Since(start))
	if err != nil {
		log.Printf("[WARN] fetch %s from %s: %v", symbol, c.Fetcher.Name(), err)
		if errors.Is(err, ErrNoData) {
			return snap, metrics.ReasonEmpty
		}
		return snap, metrics.ReasonFetchError
	}
	if resp.Empty() {
		log.Printf("[WARN] no data returned for %s", symbol)
		return snap, metrics.ReasonEmpty
	}

	frame, err := Select(resp, symbol)
	if err != nil {
		log.Printf("[WARN] select %s: %v", symbol, err)
		return snap, metrics.ReasonSymbolMissing
	}

	bars, err := Normalize(frame)
	if err != nil {
		log.Printf("[WARN] normalize %s: %v", symbol, err)
		if errors.Is(err, ErrMissingColumns) {
			return snap, metrics.ReasonMissingColumns
		}
		return snap, metrics.ReasonEmpty
	}
	if len(bars) == 0 {
		log.Printf("[WARN] no complete bars for %s", symbol)
		return snap, metrics.ReasonEmpty
	}

	rows := calculator.ComputeStochastic(bars, c.lookback())
	if len(rows) < 2 {
		log.Printf("[WARN] not enough rows for day-over-day stoch for %s", symbol)
		return snap, metrics.ReasonInsufficientHistory
	}

	last, prev := len(rows)-1, len(rows)-2
	snap.Close = model.Some(bars[last].Close)
	snap.SlowK = rows[last].SlowK
	if !snap.SlowK.Valid() {
		log.Printf("[WARN] slow stoch undefined for %s (%d bars), insufficient history", symbol, len(bars))
		return snap, metrics.ReasonInsufficientHistory
	}
	snap.SlowKDelta = snap.SlowK.Sub(rows[prev].SlowK)
	return snap, metrics.ReasonOK
}

func (c *Collector) lookback() int {
	if c.Lookback < 1 {
		return calculator.DefaultLookback
	}
	return c.Lookback
}

// SnapshotEach computes a snapshot for every symbol and calls fn with its
// index as each one completes. fn is never called concurrently. Symbols not
// yet started when ctx is cancelled are skipped.
func (c *Collector) SnapshotEach(ctx context.Context, symbols []string, fn func(i int, s model.Snapshot)) {
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}
	if workers <= 1 {
		for i, sym := range symbols {
			if ctx.Err() != nil {
				return
			}
			fn(i, c.Snapshot(ctx, sym))
		}
		return
	}

	type result struct {
		idx  int
		snap model.Snapshot
	}
	jobs := make(chan int)
	results := make(chan result)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- result{idx: i, snap: c.Snapshot(ctx, symbols[i])}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range symbols {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		fn(r.idx, r.snap)
	}
}

// SnapshotAll returns one snapshot per symbol in input order. Symbols skipped
// after cancellation come back undefined.
func (c *Collector) SnapshotAll(ctx context.Context, symbols []string) []model.Snapshot {
	out := make([]model.Snapshot, len(symbols))
	for i, sym := range symbols {
		out[i] = model.EmptySnapshot(sym)
	}
	c.SnapshotEach(ctx, symbols, func(i int, s model.Snapshot) {
		out[i] = s
	})
	return out
}
