package calculator

// Extremes tracks the max and min of the last window values using monotonic deques.
// A window of 0 or less keeps every value, giving running (all-time) extremes.
type Extremes struct {
	window int
	seen   int
	maxQ   []entry // values strictly decreasing front to back
	minQ   []entry // values strictly increasing front to back
}

type entry struct {
	idx int
	val float64
}

// NewExtremes creates a tracker over the given window.
func NewExtremes(window int) *Extremes {
	return &Extremes{window: window}
}

// Push adds the next value and evicts values older than the window.
func (x *Extremes) Push(v float64) {
	i := x.seen
	x.seen++

	for len(x.maxQ) > 0 && x.maxQ[len(x.maxQ)-1].val <= v {
		x.maxQ = x.maxQ[:len(x.maxQ)-1]
	}
	x.maxQ = append(x.maxQ, entry{i, v})

	for len(x.minQ) > 0 && x.minQ[len(x.minQ)-1].val >= v {
		x.minQ = x.minQ[:len(x.minQ)-1]
	}
	x.minQ = append(x.minQ, entry{i, v})

	if x.window > 0 {
		oldest := i - x.window + 1
		for x.maxQ[0].idx < oldest {
			x.maxQ = x.maxQ[1:]
		}
		for x.minQ[0].idx < oldest {
			x.minQ = x.minQ[1:]
		}
	}
}

// Len returns how many values are inside the window.
func (x *Extremes) Len() int {
	if x.window > 0 && x.seen > x.window {
		return x.window
	}
	return x.seen
}

// Max returns the largest value in the window, or 0 when empty.
func (x *Extremes) Max() float64 {
	if len(x.maxQ) == 0 {
		return 0
	}
	return x.maxQ[0].val
}

// Min returns the smallest value in the window, or 0 when empty.
func (x *Extremes) Min() float64 {
	if len(x.minQ) == 0 {
		return 0
	}
	return x.minQ[0].val
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
// A flat range yields 0.5.
func RangePosition(current, high, low float64) float64 {
	if high <= low {
		return 0.5
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos
}
