package collector

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"StochWatch/internal/model"
)

var (
	// ErrNoData is returned when a source has nothing for the symbol.
	ErrNoData = errors.New("no data returned")
	// ErrSymbolNotFound is returned when a batch response lacks the requested symbol.
	ErrSymbolNotFound = errors.New("symbol not in response")
	// ErrMissingColumns is returned when a frame lacks a required OHLC column.
	ErrMissingColumns = errors.New("missing required columns")
)

// RequiredColumns are the fields every normalized bar must have.
var RequiredColumns = []string{"Open", "High", "Low", "Close"}

// ColumnAliases lists, per canonical column, the upstream names accepted for it
// in order of preference. Lookup is case-insensitive.
var ColumnAliases = map[string][]string{
	"Open":   {"Open"},
	"High":   {"High"},
	"Low":    {"Low", "Price"},
	"Close":  {"Close"},
	"Volume": {"Volume"},
}

// Frame is a column-oriented daily series as a data source delivers it.
// Column names are whatever the source uses; Normalize maps them.
type Frame struct {
	Times   []time.Time
	Columns map[string][]model.Value
}

// NewFrame allocates a frame with n rows.
func NewFrame(n int) *Frame {
	return &Frame{
		Times:   make([]time.Time, n),
		Columns: make(map[string][]model.Value),
	}
}

// Len returns the row count. A nil frame has none.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Times)
}

// Set stores v at row i of column name, creating the column on first use.
func (f *Frame) Set(name string, i int, v model.Value) {
	col, ok := f.Columns[name]
	if !ok {
		col = make([]model.Value, len(f.Times))
		f.Columns[name] = col
	}
	col[i] = v
}

// column finds the first alias of canonical present in the frame.
func (f *Frame) column(canonical string) ([]model.Value, bool) {
	aliases, ok := ColumnAliases[canonical]
	if !ok {
		aliases = []string{canonical}
	}
	for _, alias := range aliases {
		for name, col := range f.Columns {
			if strings.EqualFold(name, alias) {
				return col, true
			}
		}
	}
	return nil, false
}

// Select picks the frame for symbol out of a response.
func Select(resp *Response, symbol string) (*Frame, error) {
	if resp == nil {
		return nil, ErrNoData
	}
	if resp.Frame != nil {
		return resp.Frame, nil
	}
	if len(resp.BySymbol) == 0 {
		return nil, ErrNoData
	}
	if f, ok := resp.BySymbol[symbol]; ok {
		return f, nil
	}
	for name, f := range resp.BySymbol {
		if strings.EqualFold(name, symbol) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
}

// Normalize maps a frame onto typed bars. Rows missing any required field, or
// with High below Low or a negative Low, are dropped. The result is sorted by
// time with one bar per calendar date.
func Normalize(f *Frame) ([]model.Bar, error) {
	if f.Len() == 0 {
		return nil, ErrNoData
	}
	cols := make(map[string][]model.Value, len(RequiredColumns))
	var missing []string
	for _, name := range RequiredColumns {
		col, ok := f.column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = col
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	volume, _ := f.column("Volume")

	at := func(col []model.Value, i int) model.Value {
		if i < len(col) {
			return col[i]
		}
		return model.None()
	}

	bars := make([]model.Bar, 0, f.Len())
	for i, ts := range f.Times {
		o, ok1 := at(cols["Open"], i).Get()
		h, ok2 := at(cols["High"], i).Get()
		l, ok3 := at(cols["Low"], i).Get()
		c, ok4 := at(cols["Close"], i).Get()
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue // holidays and partial rows come back as nulls
		}
		if h < l || l < 0 {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   ts,
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(volume, i).Or(0),
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return dedupeDates(bars), nil
}

// dedupeDates keeps the last bar for each calendar date.
func dedupeDates(bars []model.Bar) []model.Bar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && sameDate(out[n-1].Time, b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
