// Package pipeline runs fetch, compute, assemble and upsert for each symbol.
package pipeline

import (
	"fmt"

	"MarketLedger/internal/model"
)

// Assemble zips bars with their indicator records by position.
// A length or key mismatch is a programming error and panics.
func Assemble(bars []model.Bar, recs []model.IndicatorRecord) []model.StockRow {
	if len(bars) != len(recs) {
		panic(fmt.Sprintf("pipeline: %d bars but %d indicator records", len(bars), len(recs)))
	}
	rows := make([]model.StockRow, len(bars))
	for i := range bars {
		if bars[i].Symbol != recs[i].Symbol || !bars[i].Date.Equal(recs[i].Date) {
			panic(fmt.Sprintf("pipeline: record %d is %s, bar is %s",
				i, model.RowKey(recs[i].Symbol, recs[i].Date), model.RowKey(bars[i].Symbol, bars[i].Date)))
		}
		rows[i] = model.StockRow{Bar: bars[i], Indicators: recs[i]}
	}
	return rows
}
