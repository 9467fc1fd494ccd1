package collector

import (
	"context"
	"errors"
	"time"

	"MarketLedger/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RetryPolicy bounds the retries around one fetch.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	MaxRetries      int // 0 means limited by MaxElapsedTime only, negative means a single attempt
}

// DefaultRetryPolicy retries transient failures for up to five minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  5 * time.Minute,
		MaxRetries:      5,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	var bo backoff.BackOff = b
	switch {
	case p.MaxRetries < 0:
		bo = backoff.WithMaxRetries(bo, 0)
	case p.MaxRetries > 0:
		bo = backoff.WithMaxRetries(bo, uint64(p.MaxRetries))
	}
	return backoff.WithContext(bo, ctx)
}

// Resilient wraps a Fetcher with exponential-backoff retries and a circuit breaker.
// Every failure it returns is a *model.FetchError.
type Resilient struct {
	next    Fetcher
	policy  RetryPolicy
	breaker *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

// NewResilient wraps next.
func NewResilient(next Fetcher, policy RetryPolicy, log *zap.SugaredLogger) *Resilient {
	r := &Resilient{next: next, policy: policy, log: log}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name() + "-breaker",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// permanent per-symbol errors (unknown symbol, no data) do not count toward tripping
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return r
}

func (r *Resilient) Name() string { return r.next.Name() }

// BreakerState exposes the circuit breaker state.
func (r *Resilient) BreakerState() gobreaker.State { return r.breaker.State() }

func (r *Resilient) FetchDailyBars(ctx context.Context, symbol, exchange string, count int) ([]model.Bar, error) {
	var bars []model.Bar
	op := func() error {
		res, err := r.breaker.Execute(func() (interface{}, error) {
			return r.next.FetchDailyBars(ctx, symbol, exchange, count)
		})
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		bars = res.([]model.Bar)
		if len(bars) == 0 {
			return backoff.Permanent(ErrNoData)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warnw("Fetch failed, retrying", "provider", r.next.Name(), "symbol", symbol, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, r.policy.backOff(ctx), notify); err != nil {
		return nil, &model.FetchError{Symbol: symbol, Exchange: exchange, Err: err}
	}
	return bars, nil
}

func isPermanent(err error) bool {
	var he *HTTPError
	switch {
	case errors.As(err, &he):
		return he.Permanent()
	case errors.Is(err, ErrNoData),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return true
	}
	return false
}
