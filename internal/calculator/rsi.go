package calculator

// RSI computes the Wilder-smoothed relative strength index incrementally.
// It becomes ready after period+1 values (period price changes).
type RSI struct {
	period  int
	prev    float64
	changes int
	avgGain float64
	avgLoss float64
	started bool
}

// NewRSI creates an RSI over period changes.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Update feeds the next close.
func (r *RSI) Update(v float64) {
	if !r.started {
		r.prev = v
		r.started = true
		return
	}
	change := v - r.prev
	r.prev = v
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	r.changes++

	p := float64(r.period)
	if r.changes <= r.period {
		// simple average of the first period changes
		r.avgGain += gain / p
		r.avgLoss += loss / p
		return
	}
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
}

// Ready reports whether period changes have been seen.
func (r *RSI) Ready() bool { return r.changes >= r.period }

// Value returns the RSI in [0, 100], or 50 before the RSI is ready.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 50
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
