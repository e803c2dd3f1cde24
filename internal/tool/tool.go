// Package tool defines the engine's only side-effect boundary: named tools
// invoked by bound action structures, the context handed to them, and the
// registry the executor dispatches through.
package tool

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/memory"
	"github.com/halgrim/noema/internal/store"
	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

// Generator is the narrow text-generation surface tools and the fallback
// handler consume. provider.Router satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier pushes a prompt question to an external channel so a human sees
// that the engine is waiting. Delivery is fire-and-forget; responses come
// back through the engine's respond protocol, not the notifier.
type Notifier interface {
	NotifyPrompt(ctx context.Context, promptID, question string) error
}

// Context supplies tools with read/write access to the entity stores and
// handles to the external collaborators.
type Context struct {
	Thoughts  *store.Thoughts
	Rules     *store.Rules
	Generator Generator
	Memory    memory.Store
	Notifier  Notifier
	Logger    *zap.Logger
}

// Enqueue adds a new pending thought parented to the given trigger.
func (c *Context) Enqueue(parent *thought.Thought, kind thought.Kind, content term.Term) *thought.Thought {
	var t *thought.Thought
	if parent != nil {
		t = thought.NewChild(parent, kind, content)
	} else {
		t = thought.New(kind, content)
	}
	c.Thoughts.Add(t)
	return t
}

// Tool is an external capability. The action structure's name selected the
// tool; its arguments arrive fully substituted. A returned term starting
// with the error sentinel, or a non-nil error, signals failure; mutating
// the trigger's status to Waiting signals suspension.
type Tool interface {
	Name() string
	Execute(ctx context.Context, action term.Structure, tc *Context, trigger *thought.Thought) (term.Term, error)
}

// ErrorSentinel prefixes tool-signaled failure atoms.
const ErrorSentinel = "error:"

// ErrorTerm builds a tool-signaled failure term.
func ErrorTerm(msg string) term.Term {
	return term.Atom{Name: ErrorSentinel + " " + msg}
}

// IsErrorTerm reports whether a tool result signals failure: an atom
// starting with the sentinel, or a structure named "error".
func IsErrorTerm(t term.Term) bool {
	switch v := t.(type) {
	case term.Atom:
		return strings.HasPrefix(v.Name, ErrorSentinel)
	case term.Structure:
		return v.Name == "error"
	}
	return false
}
