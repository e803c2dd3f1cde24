package store

import (
	"time"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/rule"
)

// Rules wraps the generic store for production rules.
type Rules struct {
	*Store[*rule.Rule]
}

// NewRules creates an empty rule store.
func NewRules(logger *zap.Logger) *Rules {
	return &Rules{Store: New[*rule.Rule]("rules", logger)}
}

// Add stamps ModifiedAt and inserts the rule.
func (s *Rules) Add(r *rule.Rule) {
	r.ModifiedAt = time.Now()
	s.Store.Add(r)
}

// Update upserts the rule, refreshing ModifiedAt while keeping the original
// creation time if the rule already exists.
func (s *Rules) Update(r *rule.Rule) {
	if existing, ok := s.Store.Get(r.ID); ok {
		r.CreatedAt = existing.CreatedAt
	}
	r.ModifiedAt = time.Now()
	s.Store.Update(r)
}

// Enabled returns all currently enabled rules.
func (s *Rules) Enabled() []*rule.Rule {
	var out []*rule.Rule
	for _, r := range s.All() {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}
