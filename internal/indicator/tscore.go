package indicator

import "github.com/guregu/null/v6"

// Component is one weighted part of the T-Score.
type Component struct {
	Name      string
	Weight    float64
	Raw       float64 // 0.0~1.0
	Available bool
}

// snapshot is the per-bar state the T-Score reads. Index i of the MA arrays
// corresponds to model.MAPeriods[i].
type snapshot struct {
	close   float64
	dma     [4]float64
	ema     [4]float64
	ready   [4]bool
	stoch   float64
	stochOK bool
	rsi     float64
	rsiOK   bool
}

func share(conds ...bool) float64 {
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}
	return float64(n) / float64(len(conds))
}

// scoreShort: price above the 10-bar averages.
func scoreShort(s *snapshot, w float64) Component {
	c := Component{Name: "short", Weight: w, Available: s.ready[0]}
	if c.Available {
		c.Raw = share(s.close > s.ema[0], s.close > s.dma[0])
	}
	return c
}

// scoreMedium: price above EMA21/EMA50 and EMA21 above EMA50.
func scoreMedium(s *snapshot, w float64) Component {
	c := Component{Name: "medium", Weight: w, Available: s.ready[2]}
	if c.Available {
		c.Raw = share(s.close > s.ema[1], s.close > s.ema[2], s.ema[1] > s.ema[2])
	}
	return c
}

// scoreLong: price above DMA100 with the 50-bar averages above the 100-bar ones.
func scoreLong(s *snapshot, w float64) Component {
	c := Component{Name: "long", Weight: w, Available: s.ready[3]}
	if c.Available {
		c.Raw = share(s.close > s.dma[3], s.dma[2] > s.dma[3], s.ema[2] > s.ema[3])
	}
	return c
}

// scoreMomentum averages the stochastic range position and RSI/100, whichever are ready.
func scoreMomentum(s *snapshot, w float64) Component {
	c := Component{Name: "momentum", Weight: w}
	sum, n := 0.0, 0
	if s.stochOK {
		sum += s.stoch
		n++
	}
	if s.rsiOK {
		sum += s.rsi / 100
		n++
	}
	if n > 0 {
		c.Available = true
		c.Raw = sum / float64(n)
	}
	return c
}

// components evaluates every T-Score component for one bar.
func (e *Engine) components(s *snapshot) []Component {
	w := e.cfg.Weights
	return []Component{
		scoreShort(s, w.Short),
		scoreMedium(s, w.Medium),
		scoreLong(s, w.Long),
		scoreMomentum(s, w.Momentum),
	}
}

// combine returns 100 * sum(w*raw) / sum(w) over available, positively weighted
// components, or null when there are none.
func combine(cs []Component) null.Float {
	var num, den float64
	for _, c := range cs {
		if !c.Available || c.Weight <= 0 {
			continue
		}
		num += c.Weight * c.Raw
		den += c.Weight
	}
	if den == 0 {
		return null.Float{}
	}
	score := 100 * num / den
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return null.FloatFrom(score)
}
