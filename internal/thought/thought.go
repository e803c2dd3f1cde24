// Package thought defines the unit of work driven by the engine: a term
// payload plus status, belief, and provenance metadata.
package thought

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halgrim/noema/internal/belief"
	"github.com/halgrim/noema/internal/term"
)

// Kind classifies a thought. The set is closed per deployment; the engine's
// fallback behavior keys off it.
type Kind string

const (
	KindInput      Kind = "input"
	KindGoal       Kind = "goal"
	KindStrategy   Kind = "strategy"
	KindOutcome    Kind = "outcome"
	KindQuery      Kind = "query"
	KindUserPrompt Kind = "user_prompt"
	KindSystem     Kind = "system"
)

// Status tracks a thought through its lifecycle. Transitions:
// pending -> active -> done | failed | waiting; waiting -> pending via the
// prompt-response protocol; failed -> pending while the retry budget lasts.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusWaiting Status = "waiting"
)

// Metadata carries provenance and bookkeeping for a thought. Core fields
// are named; Extra holds genuinely free-form extension data only.
type Metadata struct {
	RootID     string    `json:"root_id,omitempty"`
	ParentID   string    `json:"parent_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	RuleID     string    `json:"rule_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	Retries    int       `json:"retries,omitempty"`
	WaitingFor string    `json:"waiting_for,omitempty"`
	ResponseTo string    `json:"response_to,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	// Priority, when > 0, overrides the belief score as the sampling weight.
	Priority float64 `json:"priority,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Thought is the unit of work. Mutate only through the store's Update so
// ModifiedAt stays accurate and change deltas are recorded.
type Thought struct {
	ID       string
	Kind     Kind
	Content  term.Term
	Belief   belief.Belief
	Status   Status
	Metadata Metadata
}

// New creates a pending thought with a fresh id and neutral belief. RootID
// defaults to the thought's own id; callers spawning children overwrite it.
func New(kind Kind, content term.Term) *Thought {
	id := uuid.New().String()
	now := time.Now()
	return &Thought{
		ID:      id,
		Kind:    kind,
		Content: content,
		Belief:  belief.New(),
		Status:  StatusPending,
		Metadata: Metadata{
			RootID:     id,
			CreatedAt:  now,
			ModifiedAt: now,
		},
	}
}

// NewChild creates a pending thought parented to p, inheriting its root.
func NewChild(p *Thought, kind Kind, content term.Term) *Thought {
	t := New(kind, content)
	t.Metadata.ParentID = p.ID
	t.Metadata.RootID = p.Metadata.RootID
	if t.Metadata.RootID == "" {
		t.Metadata.RootID = p.ID
	}
	return t
}

// EntityID implements the store key contract.
func (t *Thought) EntityID() string { return t.ID }

// Terminal reports whether the thought can no longer transition on its own.
func (t *Thought) Terminal() bool {
	return t.Status == StatusDone || t.Status == StatusFailed
}

// Clone returns a shallow copy. Content and Belief are values, so the copy
// is safe to mutate independently aside from Metadata.Tags/Extra, which the
// engine treats as replace-on-write.
func (t *Thought) Clone() *Thought {
	cp := *t
	return &cp
}

// wireThought is the persisted shape; Content uses the tagged term codec.
type wireThought struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Content  json.RawMessage `json:"content"`
	Belief   belief.Belief   `json:"belief"`
	Status   Status          `json:"status"`
	Metadata Metadata        `json:"metadata"`
}

// MarshalJSON encodes the thought with its content in tagged term form.
func (t *Thought) MarshalJSON() ([]byte, error) {
	content, err := term.Marshal(t.Content)
	if err != nil {
		return nil, fmt.Errorf("thought %s: %w", t.ID, err)
	}
	return json.Marshal(wireThought{
		ID:       t.ID,
		Kind:     t.Kind,
		Content:  content,
		Belief:   t.Belief,
		Status:   t.Status,
		Metadata: t.Metadata,
	})
}

// UnmarshalJSON decodes the persisted shape, failing closed on malformed
// content terms.
func (t *Thought) UnmarshalJSON(data []byte) error {
	var w wireThought
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("thought: decode: %w", err)
	}
	content, err := term.Unmarshal(w.Content)
	if err != nil {
		return fmt.Errorf("thought %s: content: %w", w.ID, err)
	}
	t.ID = w.ID
	t.Kind = w.Kind
	t.Content = content
	t.Belief = w.Belief
	t.Status = w.Status
	t.Metadata = w.Metadata
	return nil
}
