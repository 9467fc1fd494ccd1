package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"MarketLedger/internal/model"
)

// RESTFetcher implements Fetcher against a generic bars REST API:
// GET {BaseURL}/api/v1/bars/daily?symbol=&exchange=&limit= returning a JSON array.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the API. Date may be given as
// YYYY-MM-DD or as a unix timestamp.
type restBar struct {
	Date      string  `json:"date"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (rb restBar) day() (time.Time, error) {
	if rb.Date != "" {
		return model.ParseDate(rb.Date)
	}
	if rb.Timestamp == 0 {
		return time.Time{}, fmt.Errorf("bar has neither date nor timestamp")
	}
	return model.DateOf(time.Unix(rb.Timestamp, 0).UTC()), nil
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol, exchange string, count int) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("exchange", exchange)
	q.Set("limit", strconv.Itoa(count))
	endpoint := f.BaseURL + "/api/v1/bars/daily?" + q.Encode()

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
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &HTTPError{Provider: "rest", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rest %s: %w", symbol, ErrNoData)
	}
	bars := make([]model.Bar, 0, len(raw))
	for i, rb := range raw {
		d, err := rb.day()
		if err != nil {
			return nil, fmt.Errorf("decode bar %d: %w", i, err)
		}
		bars = append(bars, model.Bar{
			Symbol:   symbol,
			Exchange: exchange,
			Date:     d,
			Open:     rb.Open,
			High:     rb.High,
			Low:      rb.Low,
			Close:    rb.Close,
			Volume:   int64(rb.Volume),
		})
	}
	return normalize(bars, count), nil
}
