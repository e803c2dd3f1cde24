// Package persist gives the in-memory entity stores durability: a JSON
// snapshot file for single-node runs and an optional PostgreSQL archive
// fed from the engine's change deltas.
package persist

import (
	"context"

	"github.com/halgrim/noema/internal/rule"
	"github.com/halgrim/noema/internal/thought"
)

// Snapshot is the full persisted state.
type Snapshot struct {
	SavedAt  string             `json:"saved_at"`
	Thoughts []*thought.Thought `json:"thoughts"`
	Rules    []*rule.Rule       `json:"rules"`
}

// Persister saves and restores full state snapshots.
type Persister interface {
	Save(ctx context.Context) error
	Load(ctx context.Context) error
}
