package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"StochWatch/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market data API.
// Alpaca answers bar requests keyed by symbol, so responses use the batch shape.
type AlpacaFetcher struct {
	Client *marketdata.Client
	Feed   marketdata.Feed
	now    func() time.Time
}

// NewAlpacaFetcher creates a fetcher on the free IEX feed.
func NewAlpacaFetcher(apiKey, apiSecret, baseURL string) *AlpacaFetcher {
	return &AlpacaFetcher{
		Client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		Feed: marketdata.IEX,
		now:  time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchDailyBars(ctx context.Context, symbol, period, interval string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if interval != DefaultInterval {
		return nil, fmt.Errorf("alpaca: unsupported interval %q", interval)
	}
	end := f.now()
	start, err := PeriodStart(period, end)
	if err != nil {
		return nil, fmt.Errorf("alpaca: %w", err)
	}

	bars, err := f.Client.GetMultiBars([]string{symbol}, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      f.Feed,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca get bars: %w", err)
	}
	return alpacaResponse(bars), nil
}

func alpacaResponse(bars map[string][]marketdata.Bar) *Response {
	out := &Response{BySymbol: make(map[string]*Frame, len(bars))}
	for sym, symBars := range bars {
		frame := NewFrame(len(symBars))
		for i, b := range symBars {
			frame.Times[i] = b.Timestamp
			frame.Set("Open", i, model.Some(b.Open))
			frame.Set("High", i, model.Some(b.High))
			frame.Set("Low", i, model.Some(b.Low))
			frame.Set("Close", i, model.Some(b.Close))
			frame.Set("Volume", i, model.Some(float64(b.Volume)))
		}
		out.BySymbol[sym] = frame
	}
	return out
}
