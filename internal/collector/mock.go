package collector

import (
	"context"
	"time"

	"MarketLedger/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.Bar // keyed by symbol; generated when absent
	Err   map[string]error
	End   time.Time // last generated day, defaults to today
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol, exchange string, count int) ([]model.Bar, error) {
	m.Calls++
	if err, ok := m.Err[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		out := make([]model.Bar, len(bars))
		copy(out, bars)
		return out, nil
	}
	end := m.End
	if end.IsZero() {
		end = time.Now()
	}
	return GenerateBars(symbol, exchange, m.Price, count, model.DateOf(end)), nil
}

// GenerateBars builds count consecutive daily bars ending at end with a gentle upward drift.
func GenerateBars(symbol, exchange string, basePrice float64, count int, end time.Time) []model.Bar {
	if basePrice <= 0 {
		basePrice = 100
	}
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Symbol:   symbol,
			Exchange: exchange,
			Date:     end.AddDate(0, 0, -(count - 1 - i)),
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			Volume:   1000000,
		}
	}
	return bars
}
