package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

// maxStrategySteps bounds how many strategy thoughts a single goal can
// fan out into.
const maxStrategySteps = 5

// fallback is the no-rule-match path, keyed by thought kind: inputs become
// goals, goals become strategy steps, strategies become predicted
// outcomes, outcomes become memory, and everything else asks the user. A
// failed LLM call also routes to the user-prompt path, so the thought is
// never silently left active.
func (e *Engine) fallback(ctx context.Context, t *thought.Thought) error {
	switch t.Kind {
	case thought.KindInput:
		return e.fallbackInput(ctx, t)
	case thought.KindGoal:
		return e.fallbackGoal(ctx, t)
	case thought.KindStrategy:
		return e.fallbackStrategy(ctx, t)
	case thought.KindOutcome:
		return e.fallbackOutcome(ctx, t)
	default:
		return e.suspendOnPrompt(ctx, t)
	}
}

func (e *Engine) fallbackInput(ctx context.Context, t *thought.Thought) error {
	text, err := e.generate(ctx,
		"Given the user input below, state one concrete goal that would address it. "+
			"Reply with the goal only.\n\nInput: "+term.Canonical(t.Content))
	if err != nil {
		e.logger.Warn("goal generation failed, asking user",
			zap.String("id", t.ID), zap.Error(err))
		return e.suspendOnPrompt(ctx, t)
	}
	child := e.toolCtx.Enqueue(t, thought.KindGoal, term.ParseHeuristic(text))
	e.logger.Info("goal derived from input",
		zap.String("input", t.ID), zap.String("goal", child.ID))
	e.succeed(t.ID)
	return nil
}

func (e *Engine) fallbackGoal(ctx context.Context, t *thought.Thought) error {
	text, err := e.generate(ctx,
		fmt.Sprintf("Outline up to %d short strategy steps to achieve the goal below, one per line. "+
			"Reply with the steps only.\n\nGoal: %s", maxStrategySteps, term.Canonical(t.Content)))
	if err != nil {
		e.logger.Warn("strategy generation failed, asking user",
			zap.String("id", t.ID), zap.Error(err))
		return e.suspendOnPrompt(ctx, t)
	}
	spawned := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e.toolCtx.Enqueue(t, thought.KindStrategy, term.ParseHeuristic(line))
		spawned++
		if spawned >= maxStrategySteps {
			break
		}
	}
	if spawned == 0 {
		return e.suspendOnPrompt(ctx, t)
	}
	e.logger.Info("strategies derived from goal",
		zap.String("goal", t.ID), zap.Int("steps", spawned))
	e.succeed(t.ID)
	return nil
}

func (e *Engine) fallbackStrategy(ctx context.Context, t *thought.Thought) error {
	text, err := e.generate(ctx,
		"Predict the most likely outcome of carrying out the strategy below. "+
			"Reply with the outcome only.\n\nStrategy: "+term.Canonical(t.Content))
	if err != nil {
		e.logger.Warn("outcome prediction failed, asking user",
			zap.String("id", t.ID), zap.Error(err))
		return e.suspendOnPrompt(ctx, t)
	}
	e.toolCtx.Enqueue(t, thought.KindOutcome, term.ParseHeuristic(text))
	e.succeed(t.ID)
	return nil
}

// fallbackOutcome routes terminal content into memory so it becomes
// retrievable context for later reasoning.
func (e *Engine) fallbackOutcome(ctx context.Context, t *thought.Thought) error {
	if e.toolCtx.Memory == nil {
		return fmt.Errorf("no memory store configured for outcome %s", t.ID)
	}
	_, err := e.toolCtx.Memory.Add(ctx, term.Canonical(t.Content), map[string]string{
		"thought_id": t.ID,
		"kind":       string(t.Kind),
		"root_id":    t.Metadata.RootID,
	})
	if err != nil {
		return fmt.Errorf("memorize outcome: %w", err)
	}
	e.succeed(t.ID)
	return nil
}

// suspendOnPrompt synthesizes a user_prompt child and parks the thought in
// waiting against it.
func (e *Engine) suspendOnPrompt(ctx context.Context, t *thought.Thought) error {
	question := "How should I proceed with: " + term.Canonical(t.Content) + "?"
	prompt := thought.NewChild(t, thought.KindUserPrompt, term.Atom{Name: question})
	e.thoughts.Add(prompt)

	suspended := t.Clone()
	suspended.Status = thought.StatusWaiting
	suspended.Metadata.WaitingFor = prompt.ID
	e.thoughts.Update(suspended)

	if e.toolCtx.Notifier != nil {
		if err := e.toolCtx.Notifier.NotifyPrompt(ctx, prompt.ID, question); err != nil {
			e.logger.Warn("prompt notification failed",
				zap.String("prompt", prompt.ID), zap.Error(err))
		}
	}
	e.logger.Info("thought suspended pending user input",
		zap.String("id", t.ID), zap.String("prompt", prompt.ID))
	return nil
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.toolCtx.Generator == nil {
		return "", fmt.Errorf("no generator configured")
	}
	return e.toolCtx.Generator.Generate(ctx, prompt)
}
