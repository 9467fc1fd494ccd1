package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketLedger/internal/model"
)

// Memory is a map-backed Gateway for tests and dry runs.
type Memory struct {
	mu   sync.Mutex
	rows map[string]model.StockRow

	// UpsertErr, when set, fails every Upsert with a *model.StorageError.
	UpsertErr error
	Closed    bool
}

func NewMemory() *Memory {
	return &Memory{rows: map[string]model.StockRow{}}
}

func (m *Memory) Setup(context.Context) error { return nil }

func (m *Memory) Drop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = map[string]model.StockRow{}
	return nil
}

func (m *Memory) Upsert(ctx context.Context, rows []model.StockRow) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return 0, model.WrapStorage("upsert", m.UpsertErr)
	}
	if err := ctx.Err(); err != nil {
		return 0, model.WrapStorage("upsert", err)
	}
	for _, r := range rows {
		r.Date = model.DateOf(r.Date)
		r.Indicators.Date = r.Date
		m.rows[r.Key()] = r
	}
	return len(rows), nil
}

func (m *Memory) GetByKey(_ context.Context, symbol string, date time.Time) (*model.StockRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[model.RowKey(symbol, date)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) ListSymbols(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, r := range m.rows {
		if !seen[r.Symbol] {
			seen[r.Symbol] = true
			out = append(out, r.Symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Stats(context.Context) (model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st model.Stats
	symbols := map[string]bool{}
	for _, r := range m.rows {
		symbols[r.Symbol] = true
		st.RowCount++
		if st.FirstDate.IsZero() || r.Date.Before(st.FirstDate) {
			st.FirstDate = r.Date
		}
		if r.Date.After(st.LastDate) {
			st.LastDate = r.Date
		}
	}
	st.SymbolCount = int64(len(symbols))
	return st, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Len returns the number of stored rows.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
