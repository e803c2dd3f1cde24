// Package rule defines production rules and the deterministic matcher that
// selects which rule fires on a thought.
package rule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halgrim/noema/internal/belief"
	"github.com/halgrim/noema/internal/term"
)

// Rule pairs a pattern with an action. When the pattern unifies with a
// thought's content the rule proposes the action: a structure whose name
// identifies a tool and whose arguments, after substitution, are the tool's
// parameters.
type Rule struct {
	ID          string
	Pattern     term.Term
	Action      term.Term
	Belief      belief.Belief
	Description string
	// Priority breaks ties above the learned belief score; default 0.
	Priority   int
	Enabled    bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// New creates an enabled rule with a fresh id and neutral belief.
func New(pattern, action term.Term) *Rule {
	now := time.Now()
	return &Rule{
		ID:         uuid.New().String(),
		Pattern:    pattern,
		Action:     action,
		Belief:     belief.New(),
		Enabled:    true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// EntityID implements the store key contract.
func (r *Rule) EntityID() string { return r.ID }

// Clone returns a shallow copy of the rule.
func (r *Rule) Clone() *Rule {
	cp := *r
	return &cp
}

type wireRule struct {
	ID          string          `json:"id"`
	Pattern     json.RawMessage `json:"pattern"`
	Action      json.RawMessage `json:"action"`
	Belief      belief.Belief   `json:"belief"`
	Description string          `json:"description,omitempty"`
	Priority    int             `json:"priority,omitempty"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   time.Time       `json:"created_at"`
	ModifiedAt  time.Time       `json:"modified_at"`
}

// MarshalJSON encodes the rule with pattern and action in tagged term form.
func (r *Rule) MarshalJSON() ([]byte, error) {
	pattern, err := term.Marshal(r.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %s: pattern: %w", r.ID, err)
	}
	action, err := term.Marshal(r.Action)
	if err != nil {
		return nil, fmt.Errorf("rule %s: action: %w", r.ID, err)
	}
	return json.Marshal(wireRule{
		ID:          r.ID,
		Pattern:     pattern,
		Action:      action,
		Belief:      r.Belief,
		Description: r.Description,
		Priority:    r.Priority,
		Enabled:     r.Enabled,
		CreatedAt:   r.CreatedAt,
		ModifiedAt:  r.ModifiedAt,
	})
}

// UnmarshalJSON decodes the persisted shape, failing closed on malformed
// terms.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var w wireRule
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("rule: decode: %w", err)
	}
	pattern, err := term.Unmarshal(w.Pattern)
	if err != nil {
		return fmt.Errorf("rule %s: pattern: %w", w.ID, err)
	}
	action, err := term.Unmarshal(w.Action)
	if err != nil {
		return fmt.Errorf("rule %s: action: %w", w.ID, err)
	}
	r.ID = w.ID
	r.Pattern = pattern
	r.Action = action
	r.Belief = w.Belief
	r.Description = w.Description
	r.Priority = w.Priority
	r.Enabled = w.Enabled
	r.CreatedAt = w.CreatedAt
	r.ModifiedAt = w.ModifiedAt
	return nil
}
