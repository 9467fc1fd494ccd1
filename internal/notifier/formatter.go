package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"MarketLedger/internal/model"
	"MarketLedger/internal/pipeline"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Places is the number of decimals shown for prices and averages.
const Places = 2

// Money renders v rounded half away from zero to Places decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(Places)
}

func nullMoney(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return Money(v.Float64)
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatRow renders one stored row for the CLI and Telegram.
func FormatRow(r *model.StockRow) string {
	ind := &r.Indicators
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", r.Symbol, model.DateKey(r.Date), r.Exchange)
	fmt.Fprintf(&b, "  OHLC:   %s / %s / %s / %s  vol %d\n",
		Money(r.Open), Money(r.High), Money(r.Low), Money(r.Close), r.Volume)
	for _, p := range model.MAPeriods {
		fmt.Fprintf(&b, "  MA%-4d DMA %-10s EMA %s\n", p, nullMoney(ind.DMA(p)), nullMoney(ind.EMA(p)))
	}
	fmt.Fprintf(&b, "  52w high/low: %s/%s  all-time high/low: %s/%s\n",
		flag(ind.Is52WeekHigh), flag(ind.Is52WeekLow), flag(ind.IsAllTimeHigh), flag(ind.IsAllTimeLow))

	t := "-"
	if ind.TScore.Valid {
		t = decimal.NewFromFloat(ind.TScore.Float64).StringFixed(1)
	}
	f := "-"
	if ind.FScore.Valid {
		f = fmt.Sprintf("%d", ind.FScore.Int64)
	}
	fmt.Fprintf(&b, "  T-Score: %s  F-Score: %s\n", t, f)
	return b.String()
}

// FormatBatchReport summarizes one pipeline run.
func FormatBatchReport(res *pipeline.BatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d ok, %d failed, %d skipped, %d rows in %s\n",
		res.RunID.String()[:8], len(res.Succeeded), len(res.Failed), len(res.Skipped),
		res.Rows, res.Duration.Round(time.Millisecond))
	for _, sym := range res.Order {
		if n, ok := res.Succeeded[sym]; ok {
			fmt.Fprintf(&b, "  ok      %-12s %d rows\n", sym, n)
		} else if err, ok := res.Failed[sym]; ok {
			fmt.Fprintf(&b, "  failed  %-12s %v\n", sym, err)
		}
	}
	for _, sym := range res.Skipped {
		fmt.Fprintf(&b, "  skipped %s\n", sym)
	}
	return b.String()
}

// FormatStats renders store statistics and, if given, the known symbols.
func FormatStats(st model.Stats, symbols []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbols: %d\nRows: %d\n", st.SymbolCount, st.RowCount)
	if st.RowCount > 0 {
		fmt.Fprintf(&b, "Date range: %s to %s\n", model.DateKey(st.FirstDate), model.DateKey(st.LastDate))
	} else {
		b.WriteString("Date range: -\n")
	}
	if len(symbols) > 0 {
		sorted := append([]string(nil), symbols...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "Known symbols: %s\n", strings.Join(sorted, ", "))
	}
	return b.String()
}
