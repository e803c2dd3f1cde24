package rule

import (
	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

// Match is a rule whose pattern unified with a thought's content, together
// with the resulting bindings.
type Match struct {
	Rule     *Rule
	Bindings term.Bindings
}

// FindBest unifies the thought's content against every enabled rule and
// returns the strongest match, or nil if nothing matched. Ranking is
// deterministic (priority first, then belief score); randomness lives in
// thought sampling, not here.
func FindBest(t *thought.Thought, rules []*Rule) *Match {
	var best *Match
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		b, ok := term.Unify(r.Pattern, t.Content, nil)
		if !ok {
			continue
		}
		m := &Match{Rule: r, Bindings: b}
		if best == nil || stronger(m.Rule, best.Rule) {
			best = m
		}
	}
	return best
}

// stronger reports whether a outranks b: higher priority wins, belief score
// breaks ties.
func stronger(a, b *Rule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Belief.Score() > b.Belief.Score()
}
