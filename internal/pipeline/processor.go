package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketLedger/internal/collector"
	"MarketLedger/internal/fundamentals"
	"MarketLedger/internal/indicator"
	"MarketLedger/internal/metrics"
	"MarketLedger/internal/model"
	"MarketLedger/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invalidator drops cached copies of rows that were rewritten.
type Invalidator interface {
	Invalidate(ctx context.Context, rows []model.StockRow) error
}

// Processor wires the Bar Source, the Indicator Engine and the store.
// Symbols are processed one after another.
type Processor struct {
	Fetcher      collector.Fetcher
	Engine       *indicator.Engine
	Store        store.Gateway
	Fundamentals fundamentals.Source // nil means no F-Scores
	Cache        Invalidator         // optional
	Log          *zap.SugaredLogger
	Metrics      *metrics.Metrics // optional
}

// BatchResult reports the outcome of one Process call.
type BatchResult struct {
	RunID     uuid.UUID
	Succeeded map[string]int   // symbol -> rows written
	Failed    map[string]error // symbol -> cause
	Skipped   []string         // not attempted after a storage failure
	Order     []string         // normalized input order
	Rows      int
	Duration  time.Duration
}

// OK reports whether every symbol succeeded.
func (b *BatchResult) OK() bool {
	return len(b.Failed) == 0 && len(b.Skipped) == 0
}

// ProcessSymbol fetches count bars for one symbol, computes indicators and
// upserts the rows. It returns the number of rows written.
func (p *Processor) ProcessSymbol(ctx context.Context, symbol, exchange string, count int) (int, error) {
	done := p.Metrics.Stage("fetch")
	bars, err := p.Fetcher.FetchDailyBars(ctx, symbol, exchange, count)
	done()
	if err != nil {
		var fe *model.FetchError
		if !errors.As(err, &fe) {
			err = &model.FetchError{Symbol: symbol, Exchange: exchange, Err: err}
		}
		return 0, err
	}
	p.Metrics.Bars(len(bars))
	if len(bars) == 0 {
		return 0, &model.FetchError{Symbol: symbol, Exchange: exchange, Err: collector.ErrNoData}
	}

	var fscores map[string]int
	if p.Fundamentals != nil {
		if fscores, err = p.Fundamentals.Scores(ctx, symbol); err != nil {
			return 0, fmt.Errorf("fundamentals for %s: %w", symbol, err)
		}
	}

	done = p.Metrics.Stage("compute")
	recs, err := p.Engine.Compute(bars, fscores)
	done()
	if err != nil {
		return 0, fmt.Errorf("compute %s: %w", symbol, err)
	}
	rows := Assemble(bars, recs)

	done = p.Metrics.Stage("upsert")
	n, err := p.Store.Upsert(ctx, rows)
	done()
	if err != nil {
		return n, err
	}
	p.Metrics.Rows(n)

	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx, rows); err != nil {
			p.Log.Warnw("Cache invalidation failed", "symbol", symbol, "error", err)
		}
	}
	return n, nil
}

// Process runs ProcessSymbol for each symbol. A fetch, validation or
// fundamentals failure marks that symbol failed and moves on; a storage
// failure stops the batch and the remaining symbols are reported as skipped.
func (p *Processor) Process(ctx context.Context, symbols []string, exchange string, count int) *BatchResult {
	start := time.Now()
	res := &BatchResult{
		RunID:     uuid.New(),
		Succeeded: map[string]int{},
		Failed:    map[string]error{},
		Order:     NormalizeSymbols(symbols),
	}
	log := p.Log.With("run_id", res.RunID.String())
	log.Infow("Batch started", "symbols", len(res.Order), "exchange", exchange, "bars", count)

	skip := func(rest []string) {
		res.Skipped = append(res.Skipped, rest...)
		for range rest {
			p.Metrics.Symbol("skipped")
		}
	}

	for i, sym := range res.Order {
		if err := ctx.Err(); err != nil {
			skip(res.Order[i:])
			log.Warnw("Batch cancelled", "error", err, "skipped", len(res.Order)-i)
			break
		}

		n, err := p.ProcessSymbol(ctx, sym, exchange, count)
		if err == nil {
			res.Succeeded[sym] = n
			res.Rows += n
			p.Metrics.Symbol("ok")
			log.Infow("Symbol processed", "symbol", sym, "rows", n)
			continue
		}

		res.Failed[sym] = err
		p.Metrics.Symbol("failed")
		var se *model.StorageError
		if errors.As(err, &se) {
			skip(res.Order[i+1:])
			log.Errorw("Storage failure, aborting batch", "symbol", sym, "error", err, "skipped", len(res.Skipped))
			break
		}
		log.Warnw("Symbol failed", "symbol", sym, "error", err)
	}

	res.Duration = time.Since(start)
	log.Infow("Batch finished", "succeeded", len(res.Succeeded), "failed", len(res.Failed),
		"skipped", len(res.Skipped), "rows", res.Rows, "duration", res.Duration)
	return res
}

// NormalizeSymbols upper-cases and trims symbols, dropping blanks and repeats
// while keeping the first-seen order.
func NormalizeSymbols(symbols []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
