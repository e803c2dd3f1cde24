package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

// RegisterBuiltins installs the conventional tool set the fallback handler
// and default rules expect: generate, spawn, remember, recall, prompt.
func RegisterBuiltins(r *Registry) {
	r.Register(GenerateTool{})
	r.Register(SpawnTool{})
	r.Register(RememberTool{})
	r.Register(RecallTool{})
	r.Register(PromptTool{})
}

// GenerateTool sends the action arguments to the LLM collaborator as a
// prompt and returns the completion re-parsed into a term.
type GenerateTool struct{}

func (GenerateTool) Name() string { return "generate" }

func (GenerateTool) Execute(ctx context.Context, action term.Structure, tc *Context, trigger *thought.Thought) (term.Term, error) {
	if tc.Generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	parts := make([]string, len(action.Args))
	for i, arg := range action.Args {
		parts[i] = term.Canonical(arg)
	}
	prompt := strings.Join(parts, "\n")
	if prompt == "" {
		prompt = term.Canonical(trigger.Content)
	}
	text, err := tc.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return term.ParseHeuristic(text), nil
}

// SpawnTool enqueues a child thought: spawn(kind, content). Rules use it to
// decompose work without involving the LLM.
type SpawnTool struct{}

func (SpawnTool) Name() string { return "spawn" }

func (SpawnTool) Execute(ctx context.Context, action term.Structure, tc *Context, trigger *thought.Thought) (term.Term, error) {
	if len(action.Args) != 2 {
		return nil, fmt.Errorf("spawn expects (kind, content), got %d args", len(action.Args))
	}
	kindAtom, ok := action.Args[0].(term.Atom)
	if !ok {
		return nil, fmt.Errorf("spawn kind must be an atom, got %T", action.Args[0])
	}
	child := tc.Enqueue(trigger, thought.Kind(kindAtom.Name), action.Args[1])
	tc.Logger.Debug("spawned thought",
		zap.String("id", child.ID),
		zap.String("kind", kindAtom.Name),
		zap.String("parent", trigger.ID))
	return term.Atom{Name: child.ID}, nil
}

// RememberTool stores the action arguments as retrievable memory content.
type RememberTool struct{}

func (RememberTool) Name() string { return "remember" }

func (RememberTool) Execute(ctx context.Context, action term.Structure, tc *Context, trigger *thought.Thought) (term.Term, error) {
	if tc.Memory == nil {
		return nil, fmt.Errorf("no memory store configured")
	}
	var content string
	if len(action.Args) > 0 {
		parts := make([]string, len(action.Args))
		for i, arg := range action.Args {
			parts[i] = term.Canonical(arg)
		}
		content = strings.Join(parts, " ")
	} else {
		content = term.Canonical(trigger.Content)
	}
	id, err := tc.Memory.Add(ctx, content, map[string]string{
		"thought_id": trigger.ID,
		"kind":       string(trigger.Kind),
	})
	if err != nil {
		return nil, fmt.Errorf("remember: %w", err)
	}
	return term.Atom{Name: id}, nil
}

// RecallTool searches memory: recall(query) or recall(query, k). Results
// come back as a list of atoms, most relevant first.
type RecallTool struct{}

func (RecallTool) Name() string { return "recall" }

func (RecallTool) Execute(ctx context.Context, action term.Structure, tc *Context, trigger *thought.Thought) (term.Term, error) {
	if tc.Memory == nil {
		return nil, fmt.Errorf("no memory store configured")
	}
	if len(action.Args) == 0 {
		return nil, fmt.Errorf("recall expects a query argument")
	}
	query := term.Canonical(action.Args[0])
	k := 5
	if len(action.Args) > 1 {
		if a, ok := action.Args[1].(term.Atom); ok {
			if n, err := strconv.Atoi(a.Name); err == nil && n > 0 {
				k = n
			}
		}
	}
	hits, err := tc.Memory.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("recall: %w", err)
	}
	elems := make([]term.Term, len(hits))
	for i, h := range hits {
		elems[i] = term.Atom{Name: h.Content}
	}
	return term.List{Elems: elems}, nil
}

// PromptTool performs the suspend half of the prompt protocol: it creates a
// pending user_prompt thought carrying the question, moves the trigger into
// Waiting against it, and pushes the question through any configured
// notifier. The engine's Respond operation performs the resume half.
type PromptTool struct{}

func (PromptTool) Name() string { return "prompt" }

func (PromptTool) Execute(ctx context.Context, action term.Structure, tc *Context, trigger *thought.Thought) (term.Term, error) {
	var question string
	if len(action.Args) > 0 {
		parts := make([]string, len(action.Args))
		for i, arg := range action.Args {
			parts[i] = term.Canonical(arg)
		}
		question = strings.Join(parts, " ")
	} else {
		question = "How should I proceed with: " + term.Canonical(trigger.Content) + "?"
	}

	prompt := thought.NewChild(trigger, thought.KindUserPrompt, term.Atom{Name: question})
	tc.Thoughts.Add(prompt)

	suspended := trigger.Clone()
	suspended.Status = thought.StatusWaiting
	suspended.Metadata.WaitingFor = prompt.ID
	tc.Thoughts.Update(suspended)

	if tc.Notifier != nil {
		if err := tc.Notifier.NotifyPrompt(ctx, prompt.ID, question); err != nil {
			tc.Logger.Warn("prompt notification failed",
				zap.String("prompt", prompt.ID), zap.Error(err))
		}
	}
	return term.Atom{Name: prompt.ID}, nil
}
