package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StochWatch/internal/model"
)

// RESTFetcher implements Fetcher against a generic JSON bars endpoint:
//
//	GET {BaseURL}/api/v1/bars/daily?symbol=AAPL&period=3mo&interval=1d
//
// The body is either an array of bar objects or an object mapping symbols to
// such arrays. Bar objects carry a "timestamp" (unix seconds) or "date"
// (YYYY-MM-DD); every other numeric field becomes a column under its own name.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol, period, interval string) (*Response, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("period", period)
	q.Set("interval", interval)
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch bars: %w", ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	return decodeRESTBars(body)
}

func decodeRESTBars(body []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode bars: %w", ErrNoData)
	}
	if trimmed[0] == '{' {
		var batch map[string][]map[string]any
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("decode bars: %w", err)
		}
		out := &Response{BySymbol: make(map[string]*Frame, len(batch))}
		for sym, rows := range batch {
			frame, err := frameFromRows(rows)
			if err != nil {
				return nil, fmt.Errorf("decode bars for %s: %w", sym, err)
			}
			out.BySymbol[sym] = frame
		}
		return out, nil
	}
	var rows []map[string]any
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	frame, err := frameFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	return &Response{Frame: frame}, nil
}

func frameFromRows(rows []map[string]any) (*Frame, error) {
	frame := NewFrame(len(rows))
	for i, row := range rows {
		ts, err := rowTime(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		frame.Times[i] = ts
		for k, v := range row {
			if k == "timestamp" || k == "date" {
				continue
			}
			switch n := v.(type) {
			case float64:
				frame.Set(columnName(k), i, model.Some(n))
			case nil:
				frame.Set(columnName(k), i, model.None())
			}
		}
	}
	return frame, nil
}

// columnName title-cases a JSON field, so "price" becomes "Price".
func columnName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + strings.ToLower(field[1:])
}

func rowTime(row map[string]any) (time.Time, error) {
	if v, ok := row["timestamp"].(float64); ok {
		return time.Unix(int64(v), 0).UTC(), nil
	}
	if v, ok := row["date"].(string); ok {
		return time.Parse("2006-01-02", v)
	}
	return time.Time{}, fmt.Errorf("bar has no timestamp or date")
}
