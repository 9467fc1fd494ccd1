// Package store persists stock rows keyed by (symbol, date).
package store

import (
	"context"
	"time"

	"MarketLedger/internal/model"

	"github.com/guregu/null/v6"
)

// TableName is the table holding one row per symbol and trading day.
const TableName = "stock_data"

// DefaultBatchSize is the number of rows written per transaction.
const DefaultBatchSize = 1000

// Gateway is the persistence boundary. Every failure is a *model.StorageError.
// GetByKey returns nil, nil when no row exists.
type Gateway interface {
	Setup(ctx context.Context) error
	Drop(ctx context.Context) error
	Upsert(ctx context.Context, rows []model.StockRow) (int, error)
	GetByKey(ctx context.Context, symbol string, date time.Time) (*model.StockRow, error)
	ListSymbols(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (model.Stats, error)
	Close() error
}

// record is the flat storage shape shared by the SQL and ClickHouse backends.
type record struct {
	Symbol   string    `gorm:"column:symbol;primaryKey;size:32" ch:"symbol"`
	Date     time.Time `gorm:"column:date;primaryKey;type:date" ch:"date"`
	Exchange string    `gorm:"column:exchange;size:16" ch:"exchange"`

	Open   float64 `gorm:"column:open" ch:"open"`
	High   float64 `gorm:"column:high" ch:"high"`
	Low    float64 `gorm:"column:low" ch:"low"`
	Close  float64 `gorm:"column:close" ch:"close"`
	Volume int64   `gorm:"column:volume" ch:"volume"`

	DMA10  *float64 `gorm:"column:dma_10" ch:"dma_10"`
	DMA21  *float64 `gorm:"column:dma_21" ch:"dma_21"`
	DMA50  *float64 `gorm:"column:dma_50" ch:"dma_50"`
	DMA100 *float64 `gorm:"column:dma_100" ch:"dma_100"`
	EMA10  *float64 `gorm:"column:ema_10" ch:"ema_10"`
	EMA21  *float64 `gorm:"column:ema_21" ch:"ema_21"`
	EMA50  *float64 `gorm:"column:ema_50" ch:"ema_50"`
	EMA100 *float64 `gorm:"column:ema_100" ch:"ema_100"`

	Is52WeekHigh  bool `gorm:"column:is_52_week_high;not null;default:false" ch:"is_52_week_high"`
	Is52WeekLow   bool `gorm:"column:is_52_week_low;not null;default:false" ch:"is_52_week_low"`
	IsAllTimeHigh bool `gorm:"column:is_all_time_high;not null;default:false" ch:"is_all_time_high"`
	IsAllTimeLow  bool `gorm:"column:is_all_time_low;not null;default:false" ch:"is_all_time_low"`

	TScore *float64 `gorm:"column:t_score" ch:"t_score"`
	FScore *int64   `gorm:"column:f_score" ch:"f_score"`

	UpdatedAt time.Time `gorm:"column:updated_at;index" ch:"updated_at"`
}

func (record) TableName() string { return TableName }

// updateColumns are every non-key column, rewritten on conflict.
var updateColumns = []string{
	"exchange", "open", "high", "low", "close", "volume",
	"dma_10", "dma_21", "dma_50", "dma_100",
	"ema_10", "ema_21", "ema_50", "ema_100",
	"is_52_week_high", "is_52_week_low", "is_all_time_high", "is_all_time_low",
	"t_score", "f_score", "updated_at",
}

func toRecord(r *model.StockRow, now time.Time) record {
	ind := &r.Indicators
	return record{
		Symbol:        r.Symbol,
		Date:          model.DateOf(r.Date),
		Exchange:      r.Exchange,
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		Close:         r.Close,
		Volume:        r.Volume,
		DMA10:         ind.DMA10.Ptr(),
		DMA21:         ind.DMA21.Ptr(),
		DMA50:         ind.DMA50.Ptr(),
		DMA100:        ind.DMA100.Ptr(),
		EMA10:         ind.EMA10.Ptr(),
		EMA21:         ind.EMA21.Ptr(),
		EMA50:         ind.EMA50.Ptr(),
		EMA100:        ind.EMA100.Ptr(),
		Is52WeekHigh:  ind.Is52WeekHigh,
		Is52WeekLow:   ind.Is52WeekLow,
		IsAllTimeHigh: ind.IsAllTimeHigh,
		IsAllTimeLow:  ind.IsAllTimeLow,
		TScore:        ind.TScore.Ptr(),
		FScore:        ind.FScore.Ptr(),
		UpdatedAt:     now,
	}
}

func (rec *record) toRow() *model.StockRow {
	date := model.DateOf(rec.Date)
	return &model.StockRow{
		Bar: model.Bar{
			Symbol:   rec.Symbol,
			Exchange: rec.Exchange,
			Date:     date,
			Open:     rec.Open,
			High:     rec.High,
			Low:      rec.Low,
			Close:    rec.Close,
			Volume:   rec.Volume,
		},
		Indicators: model.IndicatorRecord{
			Symbol:        rec.Symbol,
			Date:          date,
			DMA10:         null.FloatFromPtr(rec.DMA10),
			DMA21:         null.FloatFromPtr(rec.DMA21),
			DMA50:         null.FloatFromPtr(rec.DMA50),
			DMA100:        null.FloatFromPtr(rec.DMA100),
			EMA10:         null.FloatFromPtr(rec.EMA10),
			EMA21:         null.FloatFromPtr(rec.EMA21),
			EMA50:         null.FloatFromPtr(rec.EMA50),
			EMA100:        null.FloatFromPtr(rec.EMA100),
			Is52WeekHigh:  rec.Is52WeekHigh,
			Is52WeekLow:   rec.Is52WeekLow,
			IsAllTimeHigh: rec.IsAllTimeHigh,
			IsAllTimeLow:  rec.IsAllTimeLow,
			TScore:        null.FloatFromPtr(rec.TScore),
			FScore:        null.IntFromPtr(rec.FScore),
		},
	}
}

// chunks splits rows into slices of at most size rows.
func chunks(rows []model.StockRow, size int) [][]model.StockRow {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]model.StockRow
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}
