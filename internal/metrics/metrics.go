// Package metrics exposes pipeline counters and timings to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the pipeline metrics on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	SymbolsProcessed *prometheus.CounterVec // labels: status=ok|failed|skipped
	BarsFetched      prometheus.Counter
	RowsUpserted     prometheus.Counter
	StageDuration    *prometheus.HistogramVec // labels: stage=fetch|compute|upsert
	CacheLookups     *prometheus.CounterVec   // labels: result=hit|miss|error
}

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SymbolsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_symbols_processed_total",
			Help: "Symbols processed by outcome",
		}, []string{"status"}),
		BarsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_bars_fetched_total",
			Help: "Daily bars received from the data provider",
		}),
		RowsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_rows_upserted_total",
			Help: "Rows written to the store",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_stage_duration_seconds",
			Help:    "Time spent per pipeline stage and symbol",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_cache_lookups_total",
			Help: "Query cache lookups by result",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		m.SymbolsProcessed,
		m.BarsFetched,
		m.RowsUpserted,
		m.StageDuration,
		m.CacheLookups,
	)
	return m
}

// Symbol counts one processed symbol by outcome (ok, failed, skipped).
func (m *Metrics) Symbol(status string) {
	if m == nil {
		return
	}
	m.SymbolsProcessed.WithLabelValues(status).Inc()
}

// Bars adds n fetched bars.
func (m *Metrics) Bars(n int) {
	if m == nil {
		return
	}
	m.BarsFetched.Add(float64(n))
}

// Rows adds n upserted rows.
func (m *Metrics) Rows(n int) {
	if m == nil {
		return
	}
	m.RowsUpserted.Add(float64(n))
}

// Cache counts one query cache lookup by result (hit, miss, error).
func (m *Metrics) Cache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Stage returns a func that records the elapsed time of stage when called.
func (m *Metrics) Stage(stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve runs the /metrics endpoint on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.SugaredLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("Metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
