// Package collector fetches daily bars from market-data providers.
package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"MarketLedger/internal/model"
)

// Fetcher defines the interface for fetching daily bars.
type Fetcher interface {
	// FetchDailyBars returns up to count most recent daily bars, oldest first.
	FetchDailyBars(ctx context.Context, symbol, exchange string, count int) ([]model.Bar, error)
	Name() string
}

// ErrNoData is returned when a provider answers successfully with no bars.
var ErrNoData = errors.New("no data returned")

// HTTPError is a non-200 provider response.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}

// Permanent reports whether retrying the request cannot help.
func (e *HTTPError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// normalize sorts bars by day, keeps the last bar seen for a repeated day
// and trims the result to the most recent count bars.
func normalize(bars []model.Bar, count int) []model.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	if count > 0 && len(out) > count {
		out = out[len(out)-count:]
	}
	return out
}
