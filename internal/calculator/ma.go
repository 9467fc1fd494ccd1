package calculator

import "errors"

// SMA is a simple moving average over a fixed window, maintained with a sliding sum.
type SMA struct {
	period int
	buf    []float64 // ring of the last period values
	idx    int
	count  int
	sum    float64
}

// NewSMA creates an SMA over period values.
func NewSMA(period int) *SMA {
	return &SMA{period: period, buf: make([]float64, period)}
}

// Update feeds the next value.
func (s *SMA) Update(v float64) {
	if s.count >= s.period {
		s.sum -= s.buf[s.idx]
	}
	s.buf[s.idx] = v
	s.sum += v
	s.idx = (s.idx + 1) % s.period
	s.count++
}

// Ready reports whether a full window has been seen.
func (s *SMA) Ready() bool { return s.count >= s.period }

// Value returns the current average, or 0 before the window is full.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	return s.sum / float64(s.period)
}

// EMA is an exponential moving average with alpha = 2/(period+1),
// seeded with the simple average of the first period values.
type EMA struct {
	period  int
	alpha   float64
	count   int
	sum     float64
	current float64
}

// NewEMA creates an EMA over period values.
func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: 2.0 / float64(period+1)}
}

// Update feeds the next value.
func (e *EMA) Update(v float64) {
	e.count++
	if e.count <= e.period {
		e.sum += v
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}
	e.current = v*e.alpha + e.current*(1-e.alpha)
}

// Ready reports whether the seed window has been seen.
func (e *EMA) Ready() bool { return e.count >= e.period }

// Value returns the current average, or 0 before the seed window is full.
func (e *EMA) Value() float64 { return e.current }

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}
