package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/rule"
	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
	"github.com/halgrim/noema/internal/tool"
)

var (
	// errStillActive marks the defensive invariant: a processing task
	// completed without settling its thought's status.
	errStillActive = errors.New("thought left active after processing")

	// ErrToolNotFound is a fatal action error: the bound action names a
	// tool that was never registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrActionNotStructure is a fatal action error: the rule's action did
	// not resolve to a structure after substitution.
	ErrActionNotStructure = errors.New("action did not resolve to a structure")
)

// executeAction binds the matched rule's action with the unification
// results, dispatches to the named tool, and interprets the outcome. The
// firing rule's belief is updated exactly once per attempt: success on
// completion or correctly-initiated suspension, failure otherwise. A nil
// return means the thought's status is settled (done or waiting).
func (e *Engine) executeAction(ctx context.Context, m *rule.Match, t *thought.Thought) error {
	bound := term.Substitute(m.Rule.Action, m.Bindings)
	action, ok := bound.(term.Structure)
	if !ok {
		e.scoreRule(m.Rule, false)
		return fmt.Errorf("%w: rule %s action %s", ErrActionNotStructure, m.Rule.ID, bound)
	}

	impl, ok := e.registry.Lookup(action.Name)
	if !ok {
		e.scoreRule(m.Rule, false)
		return fmt.Errorf("%w: %q (rule %s)", ErrToolNotFound, action.Name, m.Rule.ID)
	}

	// Record which rule fired before the tool can mutate the thought.
	tagged := t.Clone()
	tagged.Metadata.RuleID = m.Rule.ID
	e.thoughts.Update(tagged)

	result, err := e.invoke(ctx, impl, action, tagged)

	// The tool may have moved the thought (to waiting, typically); its
	// current status takes precedence over the returned term.
	current, found := e.thoughts.Get(t.ID)
	if !found {
		e.scoreRule(m.Rule, false)
		return fmt.Errorf("thought %s vanished during action %s", t.ID, action.Name)
	}

	switch {
	case err != nil:
		e.scoreRule(m.Rule, false)
		return fmt.Errorf("tool %s: %w", action.Name, err)
	case result != nil && tool.IsErrorTerm(result):
		e.scoreRule(m.Rule, false)
		return fmt.Errorf("tool %s signaled failure: %s", action.Name, result)
	case current.Status == thought.StatusFailed:
		e.scoreRule(m.Rule, false)
		return fmt.Errorf("tool %s left thought failed", action.Name)
	case current.Status == thought.StatusWaiting:
		// Neutral success: the action correctly initiated suspension, but
		// the thought itself is not done.
		e.scoreRule(m.Rule, true)
		e.logger.Debug("thought suspended by action",
			zap.String("id", t.ID),
			zap.String("tool", action.Name))
		return nil
	default:
		e.scoreRule(m.Rule, true)
		e.succeed(t.ID)
		return nil
	}
}

// invoke calls the tool, converting any panic into an ordinary tool error
// so a misbehaving tool can never crash the scheduler.
func (e *Engine) invoke(ctx context.Context, impl tool.Tool, action term.Structure, trigger *thought.Thought) (result term.Term, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
			e.logger.Error("tool panicked",
				zap.String("tool", action.Name),
				zap.Any("panic", r))
		}
	}()
	return impl.Execute(ctx, action, e.toolCtx, trigger)
}

// scoreRule applies the single belief update for an action attempt.
func (e *Engine) scoreRule(r *rule.Rule, success bool) {
	current, ok := e.rules.Get(r.ID)
	if !ok {
		current = r
	}
	next := current.Clone()
	next.Belief.Update(success)
	e.rules.Update(next)
}
