package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"MarketLedger/internal/config"
	"MarketLedger/internal/model"

	"github.com/guregu/null/v6"
	"go.uber.org/zap"
)

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleRow(symbol, date string, close float64) model.StockRow {
	d := day(date)
	return model.StockRow{
		Bar: model.Bar{
			Symbol: symbol, Exchange: "NSE", Date: d,
			Open: close - 1, High: close + 2, Low: close - 2, Close: close, Volume: 12345,
		},
		Indicators: model.IndicatorRecord{
			Symbol:        symbol,
			Date:          d,
			DMA10:         null.FloatFrom(close - 0.5),
			EMA10:         null.FloatFrom(close - 0.25),
			DMA100:        null.Float{},
			Is52WeekHigh:  true,
			IsAllTimeHigh: true,
			TScore:        null.FloatFrom(72.5),
			FScore:        null.IntFrom(6),
		},
	}
}

// gateways returns every backend that runs without external services.
func gateways(t *testing.T) map[string]Gateway {
	t.Helper()
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "ledger.db"), 2, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Gateway{"sqlite": sq, "memory": NewMemory()}
}

func TestGateway_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			if err := gw.Setup(ctx); err != nil {
				t.Fatalf("Setup: %v", err)
			}
			if err := gw.Setup(ctx); err != nil {
				t.Fatalf("Setup must be idempotent: %v", err)
			}
			row := sampleRow("RELIANCE", "2024-01-02", 100)
			n, err := gw.Upsert(ctx, []model.StockRow{row})
			if err != nil || n != 1 {
				t.Fatalf("Upsert = %d, %v", n, err)
			}
			got, err := gw.GetByKey(ctx, "RELIANCE", day("2024-01-02"))
			if err != nil {
				t.Fatalf("GetByKey: %v", err)
			}
			if got == nil || !reflect.DeepEqual(*got, row) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, row)
			}
		})
	}
}

func TestGateway_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			if err := gw.Setup(ctx); err != nil {
				t.Fatal(err)
			}
			first := sampleRow("TCS", "2024-01-02", 100)
			second := sampleRow("TCS", "2024-01-02", 111)
			second.Indicators.FScore = null.Int{}
			if _, err := gw.Upsert(ctx, []model.StockRow{first}); err != nil {
				t.Fatal(err)
			}
			if _, err := gw.Upsert(ctx, []model.StockRow{second}); err != nil {
				t.Fatal(err)
			}
			got, err := gw.GetByKey(ctx, "TCS", day("2024-01-02"))
			if err != nil || got == nil {
				t.Fatalf("GetByKey = %v, %v", got, err)
			}
			if got.Close != 111 || got.Indicators.FScore.Valid {
				t.Errorf("expected the second write to win, got close=%v fscore=%v", got.Close, got.Indicators.FScore)
			}
			st, err := gw.Stats(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if st.RowCount != 1 {
				t.Errorf("row count = %d, want 1", st.RowCount)
			}
		})
	}
}

func TestGateway_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			if err := gw.Setup(ctx); err != nil {
				t.Fatal(err)
			}
			got, err := gw.GetByKey(ctx, "NOPE", day("2024-01-02"))
			if got != nil || err != nil {
				t.Errorf("expected nil, nil; got %v, %v", got, err)
			}
		})
	}
}

func TestGateway_ListAndStats(t *testing.T) {
	ctx := context.Background()
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			if err := gw.Setup(ctx); err != nil {
				t.Fatal(err)
			}
			st, err := gw.Stats(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if st.RowCount != 0 || !st.FirstDate.IsZero() || !st.LastDate.IsZero() {
				t.Errorf("empty store stats = %+v", st)
			}

			rows := []model.StockRow{
				sampleRow("TCS", "2024-01-03", 10),
				sampleRow("INFY", "2024-01-02", 11),
				sampleRow("TCS", "2024-01-04", 12),
				sampleRow("HDFC", "2024-01-05", 13),
				sampleRow("INFY", "2024-01-01", 14),
			}
			n, err := gw.Upsert(ctx, rows)
			if err != nil || n != len(rows) {
				t.Fatalf("Upsert = %d, %v", n, err)
			}

			syms, err := gw.ListSymbols(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(syms, []string{"HDFC", "INFY", "TCS"}) {
				t.Errorf("symbols = %v", syms)
			}

			st, err = gw.Stats(ctx)
			if err != nil {
				t.Fatal(err)
			}
			want := model.Stats{SymbolCount: 3, RowCount: 5, FirstDate: day("2024-01-01"), LastDate: day("2024-01-05")}
			if st != want {
				t.Errorf("stats = %+v, want %+v", st, want)
			}

			if err := gw.Drop(ctx); err != nil {
				t.Fatalf("Drop: %v", err)
			}
			if err := gw.Setup(ctx); err != nil {
				t.Fatal(err)
			}
			if st, _ := gw.Stats(ctx); st.RowCount != 0 {
				t.Errorf("rows after drop = %d", st.RowCount)
			}
		})
	}
}

func TestSQLite_ErrorsAreStorageErrors(t *testing.T) {
	gw := gateways(t)["sqlite"]
	// Table does not exist yet.
	_, err := gw.Upsert(context.Background(), []model.StockRow{sampleRow("TCS", "2024-01-02", 1)})
	var se *model.StorageError
	if !errors.As(err, &se) || se.Op != "upsert" {
		t.Errorf("expected upsert StorageError, got %v", err)
	}
}

func TestChunks(t *testing.T) {
	rows := make([]model.StockRow, 5)
	tests := []struct {
		size int
		want []int
	}{
		{2, []int{2, 2, 1}},
		{5, []int{5}},
		{0, []int{5}},
	}
	for _, tt := range tests {
		var got []int
		for _, c := range chunks(rows, tt.size) {
			got = append(got, len(c))
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("chunks(5, %d) = %v, want %v", tt.size, got, tt.want)
		}
	}
	if chunks(nil, 10) != nil {
		t.Error("no rows should give no chunks")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	gw, err := Open(ctx, config.DatabaseConfig{Driver: "memory"}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gw.(*Memory); !ok {
		t.Errorf("expected *Memory, got %T", gw)
	}
	if gw, err := Open(ctx, config.DatabaseConfig{Driver: "oracle"}, zap.NewNop().Sugar()); err == nil || gw != nil {
		t.Errorf("expected error for unknown driver, got %v, %v", gw, err)
	}
}
