package indicator

import "testing"

func TestCombine(t *testing.T) {
	tests := []struct {
		name  string
		cs    []Component
		valid bool
		want  float64
	}{
		{"none available", []Component{{Weight: 1}, {Weight: 2}}, false, 0},
		{"single", []Component{{Weight: 0.5, Raw: 0.5, Available: true}}, true, 50},
		{
			"renormalized over available",
			[]Component{
				{Weight: 0.25, Raw: 1, Available: true},
				{Weight: 0.25, Raw: 0, Available: true},
				{Weight: 0.5, Raw: 1, Available: false},
			},
			true, 50,
		},
		{"zero weight ignored", []Component{{Weight: 0, Raw: 1, Available: true}}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := combine(tt.cs)
			if got.Valid != tt.valid {
				t.Fatalf("valid = %v, want %v", got.Valid, tt.valid)
			}
			if tt.valid && got.Float64 != tt.want {
				t.Errorf("score = %v, want %v", got.Float64, tt.want)
			}
		})
	}
}

func TestScoreMomentum(t *testing.T) {
	s := &snapshot{}
	if c := scoreMomentum(s, 0.3); c.Available {
		t.Error("momentum should be unavailable without stochastic or RSI")
	}
	s.stoch, s.stochOK = 1, true
	if c := scoreMomentum(s, 0.3); !c.Available || c.Raw != 1 {
		t.Errorf("stochastic only: %+v", c)
	}
	s.rsi, s.rsiOK = 50, true
	if c := scoreMomentum(s, 0.3); c.Raw != 0.75 {
		t.Errorf("raw = %v, want 0.75", c.Raw)
	}
}

func TestScoreMediumAlignment(t *testing.T) {
	s := &snapshot{close: 110}
	s.ema = [4]float64{0, 105, 100, 0}
	s.ready = [4]bool{true, true, true, false}
	if c := scoreMedium(s, 0.25); !c.Available || c.Raw != 1 {
		t.Errorf("bullish alignment: %+v", c)
	}
	s.close = 99.5
	s.ema[1] = 99
	if c := scoreMedium(s, 0.25); c.Raw != 1.0/3 {
		t.Errorf("raw = %v, want 1/3", c.Raw)
	}
	if c := scoreLong(s, 0.25); c.Available {
		t.Error("long component needs the 100-bar averages")
	}
}
