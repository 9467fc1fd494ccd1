package indicator

import (
	"errors"
	"fmt"
)

// Weights are the T-Score component weights. Only their ratios matter.
type Weights struct {
	Short    float64
	Medium   float64
	Long     float64
	Momentum float64
}

// Config parameterizes the engine.
type Config struct {
	YearWindow     int // trailing bars for 52-week flags
	MomentumWindow int // trailing bars for the stochastic position and RSI
	Weights        Weights
}

// DefaultConfig returns the standard 252-bar year, 14-bar momentum window and default weights.
func DefaultConfig() Config {
	return Config{
		YearWindow:     252,
		MomentumWindow: 14,
		Weights: Weights{
			Short:    0.20,
			Medium:   0.25,
			Long:     0.25,
			Momentum: 0.30,
		},
	}
}

// Validate checks window sizes and weights.
func (c Config) Validate() error {
	if c.YearWindow <= 0 {
		return fmt.Errorf("year window must be positive, got %d", c.YearWindow)
	}
	if c.MomentumWindow <= 1 {
		return fmt.Errorf("momentum window must be at least 2, got %d", c.MomentumWindow)
	}
	w := c.Weights
	for name, v := range map[string]float64{"short": w.Short, "medium": w.Medium, "long": w.Long, "momentum": w.Momentum} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %g", name, v)
		}
	}
	if w.Short+w.Medium+w.Long+w.Momentum == 0 {
		return errors.New("at least one T-Score weight must be positive")
	}
	return nil
}
