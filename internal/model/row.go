package model

import "time"

// StockRow is a bar joined with its indicator record, keyed by (Symbol, Date).
type StockRow struct {
	Bar
	Indicators IndicatorRecord `json:"indicators"`
}

// Key returns the storage key "SYMBOL:YYYY-MM-DD".
func (r *StockRow) Key() string {
	return RowKey(r.Symbol, r.Date)
}

// RowKey builds the storage key for a symbol and day.
func RowKey(symbol string, date time.Time) string {
	return symbol + ":" + DateKey(date)
}

// Stats summarizes the contents of the store.
type Stats struct {
	SymbolCount int64     `json:"symbol_count"`
	RowCount    int64     `json:"row_count"`
	FirstDate   time.Time `json:"first_date"` // zero when the store is empty
	LastDate    time.Time `json:"last_date"`
}
