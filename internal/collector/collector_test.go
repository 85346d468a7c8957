package collector

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"StochWatch/internal/calculator"
	"StochWatch/internal/metrics"
	"StochWatch/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func ohlcFrame(n int, lowName string) *Frame {
	frame := NewFrame(n)
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + float64(i%9)
		frame.Times[i] = start.AddDate(0, 0, i)
		frame.Set("Open", i, model.Some(c-0.5))
		frame.Set("High", i, model.Some(c+2))
		frame.Set(lowName, i, model.Some(c-2))
		frame.Set("Close", i, model.Some(c))
	}
	return frame
}

func assertUndefined(t *testing.T, s model.Snapshot) {
	t.Helper()
	if s.Close.Valid() || s.SlowK.Valid() || s.SlowKDelta.Valid() {
		t.Errorf("expected all-undefined snapshot for %s, got %+v", s.Symbol, s)
	}
}

func TestSnapshot_FailuresCollapseToUndefined(t *testing.T) {
	mock := &MockFetcher{
		Errors: map[string]error{
			"DOWN":  errors.New("connection refused"),
			"EMPTY": fmt.Errorf("yahoo: %w", ErrNoData),
		},
		Responses: map[string]*Response{
			"NOROWS":  {Frame: NewFrame(0)},
			"BATCH":   {BySymbol: map[string]*Frame{"OTHER": ohlcFrame(30, "Low")}},
			"NOLOW":   {Frame: ohlcFrame(30, "Bid")},
			"ONEBAR":  {Frame: ohlcFrame(1, "Low")},
			"NILRESP": nil,
		},
	}
	m := metrics.NewMetrics()
	c := NewCollector(mock, 1, m)

	for _, sym := range []string{"DOWN", "EMPTY", "NOROWS", "BATCH", "NOLOW", "ONEBAR", "NILRESP", "UNKNOWN"} {
		s := c.Snapshot(context.Background(), sym)
		if s.Symbol != sym {
			t.Errorf("symbol = %q, want %q", s.Symbol, sym)
		}
		assertUndefined(t, s)
	}

	wantOutcomes := map[string]float64{
		metrics.ReasonFetchError:          1,
		metrics.ReasonEmpty:               4,
		metrics.ReasonSymbolMissing:       1,
		metrics.ReasonMissingColumns:      1,
		metrics.ReasonInsufficientHistory: 1,
	}
	for outcome, want := range wantOutcomes {
		if got := testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues(outcome)); got != want {
			t.Errorf("outcome %s = %v, want %v", outcome, got, want)
		}
	}
}

func TestSnapshot_ShortHistoryKeepsClose(t *testing.T) {
	mock := &MockFetcher{Responses: map[string]*Response{"NEW": {Frame: ohlcFrame(10, "Low")}}}
	s := NewCollector(mock, 1, nil).Snapshot(context.Background(), "NEW")

	if c, ok := s.Close.Get(); !ok || c != 100 {
		t.Errorf("close = %v (%v), want 100", c, ok)
	}
	if s.SlowK.Valid() || s.SlowKDelta.Valid() {
		t.Errorf("slow K and delta should be undefined, got %+v", s)
	}
}

func TestSnapshot_DeltaNeedsPriorSlowK(t *testing.T) {
	// 16 bars: slow %K is first defined on the last bar only.
	mock := &MockFetcher{Responses: map[string]*Response{"X": {Frame: ohlcFrame(16, "Low")}}}
	s := NewCollector(mock, 1, nil).Snapshot(context.Background(), "X")

	if !s.SlowK.Valid() {
		t.Fatal("slow K should be defined with 16 bars")
	}
	if s.SlowKDelta.Valid() {
		t.Errorf("delta should be undefined when prior slow K is, got %v", s.SlowKDelta.Or(0))
	}
}

func TestSnapshot_FullHistory(t *testing.T) {
	frame := ohlcFrame(63, "Low")
	mock := &MockFetcher{Responses: map[string]*Response{"AAPL": {Frame: frame}}}
	s := NewCollector(mock, 1, nil).Snapshot(context.Background(), "AAPL")

	bars, err := Normalize(frame)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	rows := calculator.ComputeStochastic(bars, calculator.DefaultLookback)
	last, prev := rows[len(rows)-1], rows[len(rows)-2]

	if c, _ := s.Close.Get(); c != bars[len(bars)-1].Close {
		t.Errorf("close = %v, want %v", c, bars[len(bars)-1].Close)
	}
	if k, _ := s.SlowK.Get(); k != last.SlowK.Or(-1) {
		t.Errorf("slow K = %v, want %v", k, last.SlowK.Or(-1))
	}
	wantDelta := last.SlowK.Or(0) - prev.SlowK.Or(0)
	if d, ok := s.SlowKDelta.Get(); !ok || d != wantDelta {
		t.Errorf("delta = %v (%v), want %v", d, ok, wantDelta)
	}
	if mock.Calls[0] != "AAPL" {
		t.Errorf("fetched %v", mock.Calls)
	}
}

func TestSnapshot_BatchResponseSelectsSymbol(t *testing.T) {
	mock := &MockFetcher{Responses: map[string]*Response{
		"msft": {BySymbol: map[string]*Frame{
			"AAPL": ohlcFrame(5, "Low"),
			"MSFT": ohlcFrame(40, "Low"),
		}},
	}}
	s := NewCollector(mock, 1, nil).Snapshot(context.Background(), "msft")
	if !s.SlowK.Valid() || !s.SlowKDelta.Valid() {
		t.Errorf("expected defined values from the MSFT sub-series, got %+v", s)
	}
}

func TestSnapshot_PriceColumnMatchesLow(t *testing.T) {
	mock := &MockFetcher{Responses: map[string]*Response{
		"LOW":   {Frame: ohlcFrame(40, "Low")},
		"PRICE": {Frame: ohlcFrame(40, "Price")},
	}}
	c := NewCollector(mock, 1, nil)
	a := c.Snapshot(context.Background(), "LOW")
	b := c.Snapshot(context.Background(), "PRICE")

	if a.Close != b.Close || a.SlowK != b.SlowK || a.SlowKDelta != b.SlowKDelta {
		t.Errorf("Price-as-Low snapshot differs: %+v vs %+v", a, b)
	}
}

func TestSnapshotAll_OrderedAndIsolated(t *testing.T) {
	symbols := []string{"A", "B", "BAD", "C", "D", "E"}
	responses := map[string]*Response{}
	for i, sym := range symbols {
		responses[sym] = &Response{Frame: ohlcFrame(30+i, "Low")}
	}
	mock := &MockFetcher{
		Responses: responses,
		Errors:    map[string]error{"BAD": errors.New("rate limited")},
	}

	sequential := NewCollector(mock, 1, nil).SnapshotAll(context.Background(), symbols)
	parallel := NewCollector(mock, 4, nil).SnapshotAll(context.Background(), symbols)

	if len(parallel) != len(symbols) {
		t.Fatalf("got %d snapshots, want %d", len(parallel), len(symbols))
	}
	for i, sym := range symbols {
		if parallel[i].Symbol != sym {
			t.Errorf("index %d: symbol %q, want %q", i, parallel[i].Symbol, sym)
		}
		a, b := sequential[i], parallel[i]
		a.FetchedAt, b.FetchedAt = time.Time{}, time.Time{}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: sequential %+v != parallel %+v", sym, a, b)
		}
	}
	assertUndefined(t, parallel[2])
	for _, i := range []int{0, 1, 3, 4, 5} {
		if !parallel[i].SlowK.Valid() {
			t.Errorf("%s should not be affected by BAD", symbols[i])
		}
	}
}

func TestSnapshotAll_Empty(t *testing.T) {
	got := NewCollector(&MockFetcher{}, 8, nil).SnapshotAll(context.Background(), nil)
	if len(got) != 0 {
		t.Errorf("expected no snapshots, got %d", len(got))
	}
}

func TestSnapshotEach_StopsAfterCancel(t *testing.T) {
	mock := &MockFetcher{Price: 100}
	col := NewCollector(mock, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []int
	col.SnapshotEach(ctx, []string{"A", "B", "C", "D"}, func(i int, _ model.Snapshot) {
		seen = append(seen, i)
		cancel()
	})
	if !reflect.DeepEqual(seen, []int{0}) {
		t.Errorf("callbacks = %v, want [0]", seen)
	}
	if len(mock.Calls) != 1 {
		t.Errorf("fetches = %v, want one", mock.Calls)
	}
}

func TestSnapshotAll_CancelledLeavesUndefined(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := NewCollector(&MockFetcher{Price: 100}, 3, nil).SnapshotAll(ctx, []string{"A", "B"})
	if len(got) != 2 || got[0].Symbol != "A" || got[1].Symbol != "B" {
		t.Fatalf("got %+v", got)
	}
}

func TestMockFetcher_GeneratedBars(t *testing.T) {
	s := NewCollector(&MockFetcher{Price: 5000}, 1, nil).Snapshot(context.Background(), "SPX")
	if !s.Close.Valid() || !s.SlowK.Valid() || !s.SlowKDelta.Valid() {
		t.Errorf("generated bars should yield a full snapshot, got %+v", s)
	}
}
