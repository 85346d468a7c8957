package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPeriod is how much daily history the pipeline asks for.
	DefaultPeriod = "3mo"
	// DefaultInterval is the bar size the pipeline asks for.
	DefaultInterval = "1d"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns the price history for symbol over period
	// (e.g. "3mo") at the given interval (e.g. "1d").
	FetchDailyBars(ctx context.Context, symbol, period, interval string) (*Response, error)
	Name() string
}

// Response is what a data source returns. Single-symbol sources fill Frame;
// batch-style sources key frames by symbol in BySymbol.
type Response struct {
	Frame    *Frame
	BySymbol map[string]*Frame
}

// Empty reports whether the response carries no rows at all.
func (r *Response) Empty() bool {
	if r == nil {
		return true
	}
	if r.Frame != nil && r.Frame.Len() > 0 {
		return false
	}
	for _, f := range r.BySymbol {
		if f != nil && f.Len() > 0 {
			return false
		}
	}
	return true
}

// PeriodStart converts a range such as "5d", "3mo" or "1y" into the first
// instant it covers, counting back from now.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "ytd" {
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), nil
	}
	for _, unit := range []string{"mo", "wk", "d", "y"} {
		if !strings.HasSuffix(p, unit) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
		if err != nil || n <= 0 {
			break
		}
		switch unit {
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "wk":
			return now.AddDate(0, 0, -7*n), nil
		case "mo":
			return now.AddDate(0, -n, 0), nil
		case "y":
			return now.AddDate(-n, 0, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported period %q", period)
}
