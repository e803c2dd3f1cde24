// Package belief implements the two-counter confidence score attached to
// every thought and rule. It is a plain value type: accumulate successes
// and failures, read back a Laplace-smoothed score.
package belief

// Belief tracks evidence for and against an entity. Counters never go
// negative. Each thought or rule owns its belief exclusively; beliefs are
// never shared between entities.
type Belief struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
}

// New returns the neutral starting belief (1, 1).
func New() Belief {
	return Belief{Positive: 1, Negative: 1}
}

// Score returns (positive+1)/(positive+negative+2). Laplace smoothing keeps
// the result strictly inside (0, 1), so it is always usable as a nonzero
// sampling weight.
func (b Belief) Score() float64 {
	return (b.Positive + 1) / (b.Positive + b.Negative + 2)
}

// Update increments exactly one counter by 1.
func (b *Belief) Update(success bool) {
	if success {
		b.Positive++
	} else {
		b.Negative++
	}
}
