package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// MAPeriods are the moving-average windows carried on every indicator record.
var MAPeriods = [4]int{10, 21, 50, 100}

// IndicatorRecord holds the indicators derived for one bar.
// Moving averages and scores are null until enough history exists.
type IndicatorRecord struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`

	DMA10  null.Float `json:"dma_10"`
	DMA21  null.Float `json:"dma_21"`
	DMA50  null.Float `json:"dma_50"`
	DMA100 null.Float `json:"dma_100"`

	EMA10  null.Float `json:"ema_10"`
	EMA21  null.Float `json:"ema_21"`
	EMA50  null.Float `json:"ema_50"`
	EMA100 null.Float `json:"ema_100"`

	Is52WeekHigh  bool `json:"is_52_week_high"`
	Is52WeekLow   bool `json:"is_52_week_low"`
	IsAllTimeHigh bool `json:"is_all_time_high"`
	IsAllTimeLow  bool `json:"is_all_time_low"`

	TScore null.Float `json:"t_score"` // 0 ~ 100
	FScore null.Int   `json:"f_score"` // 0 ~ 9, external input only
}

// DMA returns the simple moving average for one of MAPeriods.
func (r *IndicatorRecord) DMA(period int) null.Float {
	switch period {
	case 10:
		return r.DMA10
	case 21:
		return r.DMA21
	case 50:
		return r.DMA50
	case 100:
		return r.DMA100
	}
	return null.Float{}
}

// EMA returns the exponential moving average for one of MAPeriods.
func (r *IndicatorRecord) EMA(period int) null.Float {
	switch period {
	case 10:
		return r.EMA10
	case 21:
		return r.EMA21
	case 50:
		return r.EMA50
	case 100:
		return r.EMA100
	}
	return null.Float{}
}

// SetMA stores the DMA and EMA values for one of MAPeriods.
func (r *IndicatorRecord) SetMA(period int, dma, ema null.Float) {
	switch period {
	case 10:
		r.DMA10, r.EMA10 = dma, ema
	case 21:
		r.DMA21, r.EMA21 = dma, ema
	case 50:
		r.DMA50, r.EMA50 = dma, ema
	case 100:
		r.DMA100, r.EMA100 = dma, ema
	}
}
