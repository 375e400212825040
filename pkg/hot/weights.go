package hot

import "math"

// epsilon floors the weight sum so a degenerate vector never divides by zero.
const epsilon = 0.00001

// Weights are the relative importance of subscriber growth (A), view growth
// (B), growth rate (C) and upload cadence (D).
type Weights struct {
	A float64 `yaml:"subs" json:"subs"`
	B float64 `yaml:"views" json:"views"`
	C float64 `yaml:"growth" json:"growth"`
	D float64 `yaml:"uploads" json:"uploads"`
}

// DefaultWeights favour raw growth over cadence.
var DefaultWeights = Weights{A: 0.38, B: 0.32, C: 0.20, D: 0.10}

// ShortsWeights replace the caller's weights for shorts-format channels:
// heavier on views and growth rate, lighter on cadence.
var ShortsWeights = Weights{A: 0.20, B: 0.45, C: 0.30, D: 0.05}

// Sum returns A+B+C+D after sanitizing.
func (w Weights) Sum() float64 {
	s := w.sanitize()
	return s.A + s.B + s.C + s.D
}

// Normalize divides every weight by max(epsilon, sum). Negative and NaN
// weights count as zero.
func (w Weights) Normalize() Weights {
	s := w.sanitize()
	total := math.Max(epsilon, s.A+s.B+s.C+s.D)
	return Weights{A: s.A / total, B: s.B / total, C: s.C / total, D: s.D / total}
}

func (w Weights) sanitize() Weights {
	return Weights{A: nonNegative(w.A), B: nonNegative(w.B), C: nonNegative(w.C), D: nonNegative(w.D)}
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64 / 8
	}
	return v
}
