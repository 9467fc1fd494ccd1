// Package indicator derives moving averages, range flags and the T-Score from daily bars.
package indicator

import (
	"fmt"
	"math"

	"MarketLedger/internal/calculator"
	"MarketLedger/internal/model"

	"github.com/guregu/null/v6"
)

// Engine turns one symbol's ordered bars into indicator records.
// It holds configuration only; every Compute call builds fresh state.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("indicator config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// state is the per-symbol accumulator set.
type state struct {
	dma   [4]*calculator.SMA
	ema   [4]*calculator.EMA
	year  *calculator.Extremes
	all   *calculator.Extremes
	highs *calculator.Extremes
	lows  *calculator.Extremes
	rsi   *calculator.RSI
}

func (e *Engine) newState() *state {
	s := &state{
		year:  calculator.NewExtremes(e.cfg.YearWindow),
		all:   calculator.NewExtremes(0),
		highs: calculator.NewExtremes(e.cfg.MomentumWindow),
		lows:  calculator.NewExtremes(e.cfg.MomentumWindow),
		rsi:   calculator.NewRSI(e.cfg.MomentumWindow),
	}
	for i, p := range model.MAPeriods {
		s.dma[i] = calculator.NewSMA(p)
		s.ema[i] = calculator.NewEMA(p)
	}
	return s
}

// Compute returns one record per bar, in input order. fscores maps
// model.DateKey(date) to an externally supplied F-Score and may be nil.
// Bars must share one symbol and have strictly increasing dates; otherwise
// a *model.ValidationError is returned with no records.
func (e *Engine) Compute(bars []model.Bar, fscores map[string]int) ([]model.IndicatorRecord, error) {
	if err := validate(bars, fscores); err != nil {
		return nil, err
	}

	out := make([]model.IndicatorRecord, 0, len(bars))
	st := e.newState()
	for _, b := range bars {
		out = append(out, e.step(st, b, fscores))
	}
	return out, nil
}

func (e *Engine) step(st *state, b model.Bar, fscores map[string]int) model.IndicatorRecord {
	rec := model.IndicatorRecord{Symbol: b.Symbol, Date: b.Date}
	snap := snapshot{close: b.Close}

	for i, p := range model.MAPeriods {
		st.dma[i].Update(b.Close)
		st.ema[i].Update(b.Close)
		var dma, ema null.Float
		if st.dma[i].Ready() {
			snap.dma[i] = st.dma[i].Value()
			dma = null.FloatFrom(snap.dma[i])
		}
		if st.ema[i].Ready() {
			snap.ema[i] = st.ema[i].Value()
			ema = null.FloatFrom(snap.ema[i])
		}
		snap.ready[i] = st.dma[i].Ready() && st.ema[i].Ready()
		rec.SetMA(p, dma, ema)
	}

	st.year.Push(b.Close)
	st.all.Push(b.Close)
	rec.Is52WeekHigh = b.Close >= st.year.Max()
	rec.Is52WeekLow = b.Close <= st.year.Min()
	rec.IsAllTimeHigh = b.Close >= st.all.Max()
	rec.IsAllTimeLow = b.Close <= st.all.Min()

	st.highs.Push(b.High)
	st.lows.Push(b.Low)
	if st.highs.Len() >= e.cfg.MomentumWindow {
		snap.stoch = calculator.RangePosition(b.Close, st.highs.Max(), st.lows.Min())
		snap.stochOK = true
	}
	st.rsi.Update(b.Close)
	if st.rsi.Ready() {
		snap.rsi = st.rsi.Value()
		snap.rsiOK = true
	}
	rec.TScore = combine(e.components(&snap))

	if fs, ok := fscores[model.DateKey(b.Date)]; ok {
		rec.FScore = null.IntFrom(int64(fs))
	}
	return rec
}

func validate(bars []model.Bar, fscores map[string]int) error {
	for i, b := range bars {
		if b.Symbol != bars[0].Symbol {
			return &model.ValidationError{Index: i, Field: "symbol",
				Reason: fmt.Sprintf("%q differs from %q", b.Symbol, bars[0].Symbol)}
		}
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			return &model.ValidationError{Index: i, Field: "close", Reason: "is not a finite number"}
		}
		if i > 0 && !model.DateOf(b.Date).After(model.DateOf(bars[i-1].Date)) {
			return &model.ValidationError{Index: i, Field: "date",
				Reason: fmt.Sprintf("%s does not follow %s", model.DateKey(b.Date), model.DateKey(bars[i-1].Date))}
		}
		if fs, ok := fscores[model.DateKey(b.Date)]; ok && (fs < 0 || fs > 9) {
			return &model.ValidationError{Index: i, Field: "f_score",
				Reason: fmt.Sprintf("%d is outside [0, 9]", fs)}
		}
	}
	return nil
}
