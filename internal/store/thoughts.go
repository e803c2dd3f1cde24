package store

import (
	"time"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/thought"
)

// Thoughts wraps the generic store with thought-specific invariants: every
// update stamps ModifiedAt and preserves the original CreatedAt.
type Thoughts struct {
	*Store[*thought.Thought]
}

// NewThoughts creates an empty thought store.
func NewThoughts(logger *zap.Logger) *Thoughts {
	return &Thoughts{Store: New[*thought.Thought]("thoughts", logger)}
}

// Add stamps ModifiedAt and inserts the thought.
func (s *Thoughts) Add(t *thought.Thought) {
	t.Metadata.ModifiedAt = time.Now()
	s.Store.Add(t)
}

// Update upserts the thought, refreshing ModifiedAt while keeping the
// original creation time if the thought already exists.
func (s *Thoughts) Update(t *thought.Thought) {
	if existing, ok := s.Store.Get(t.ID); ok {
		t.Metadata.CreatedAt = existing.Metadata.CreatedAt
	}
	t.Metadata.ModifiedAt = time.Now()
	s.Store.Update(t)
}

// ByStatus returns all thoughts currently in the given status.
func (s *Thoughts) ByStatus(status thought.Status) []*thought.Thought {
	var out []*thought.Thought
	for _, t := range s.All() {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// CountByStatus tallies thoughts per status for reporting.
func (s *Thoughts) CountByStatus() map[thought.Status]int {
	counts := make(map[thought.Status]int)
	for _, t := range s.All() {
		counts[t.Status]++
	}
	return counts
}
