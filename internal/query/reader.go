// Package query serves point-in-time lookups of stored rows.
package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"MarketLedger/internal/cache"
	"MarketLedger/internal/config"
	"MarketLedger/internal/metrics"
	"MarketLedger/internal/model"
	"MarketLedger/internal/store"

	"go.uber.org/zap"
)

// Cache is an optional read-through layer in front of the gateway.
type Cache interface {
	Get(ctx context.Context, symbol string, date time.Time) (*model.StockRow, bool, error)
	Set(ctx context.Context, row *model.StockRow) error
	Close() error
}

// Reader looks up rows by (symbol, date). It is read-only.
type Reader struct {
	gw      store.Gateway
	cache   Cache // may be nil
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	owned   bool // Close releases gw and cache
}

// NewReader wraps an existing gateway. Close on the result does not close gw or c.
func NewReader(gw store.Gateway, c Cache, log *zap.SugaredLogger) *Reader {
	return &Reader{gw: gw, cache: c, log: log}
}

// WithMetrics records cache hits and misses on m.
func (r *Reader) WithMetrics(m *metrics.Metrics) *Reader {
	r.metrics = m
	return r
}

// Open acquires a gateway and, when configured, a Redis cache. The Reader owns both.
func Open(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Reader, error) {
	gw, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	r := &Reader{gw: gw, log: log, owned: true}
	if cfg.Redis.Addr != "" {
		c, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			log.Warnw("Query cache unavailable, reading from store only", "error", err)
		} else {
			r.cache = c
		}
	}
	return r, nil
}

// Get returns the row for symbol on date, or nil, nil when none is stored.
func (r *Reader) Get(ctx context.Context, symbol string, date time.Time) (*model.StockRow, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	date = model.DateOf(date)

	if r.cache != nil {
		row, ok, err := r.cache.Get(ctx, symbol, date)
		switch {
		case err != nil:
			r.metrics.Cache("error")
			r.log.Warnw("Cache lookup failed", "symbol", symbol, "date", model.DateKey(date), "error", err)
		case ok:
			r.metrics.Cache("hit")
			return row, nil
		default:
			r.metrics.Cache("miss")
		}
	}

	row, err := r.gw.GetByKey(ctx, symbol, date)
	if err != nil {
		return nil, err
	}
	if row != nil && r.cache != nil {
		if err := r.cache.Set(ctx, row); err != nil {
			r.log.Warnw("Cache store failed", "key", row.Key(), "error", err)
		}
	}
	return row, nil
}

// Close releases what Open acquired. It is a no-op for readers built with NewReader.
func (r *Reader) Close() error {
	if !r.owned {
		return nil
	}
	var errs []error
	if r.cache != nil {
		errs = append(errs, r.cache.Close())
	}
	errs = append(errs, r.gw.Close())
	return errors.Join(errs...)
}

// WithReader opens a Reader, runs fn and closes the Reader on every exit path,
// including a panic in fn, which is re-raised after the release.
func WithReader(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, fn func(*Reader) error) error {
	r, err := Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	return use(r, fn)
}

func use(r *Reader, fn func(*Reader) error) (err error) {
	defer func() {
		if cerr := r.Close(); cerr != nil {
			r.log.Warnw("Closing reader failed", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()
	return fn(r)
}
