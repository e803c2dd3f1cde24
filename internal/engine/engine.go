// Package engine implements the forward-chaining scheduler that drives the
// thought graph: weighted sampling of pending work, bounded-concurrency
// batch execution, rule matching and action dispatch, fallback behavior,
// retry bookkeeping, and the suspend/resume prompt protocol.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/memory"
	"github.com/halgrim/noema/internal/rule"
	"github.com/halgrim/noema/internal/store"
	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
	"github.com/halgrim/noema/internal/tool"
)

// Config holds the scheduler knobs.
type Config struct {
	// TickInterval is how often Run attempts to fill scheduling slots.
	TickInterval time.Duration
	// MaxConcurrent caps the number of in-flight thoughts.
	MaxConcurrent int
	// BatchSize is the maximum number of slots filled per tick.
	BatchSize int
	// MaxRetries is the failure budget before a thought goes terminal.
	MaxRetries int
	// Seed, when nonzero, makes sampling reproducible for tests.
	Seed int64
}

// DefaultConfig returns the stock scheduler parameters.
func DefaultConfig() Config {
	return Config{
		TickInterval:  2 * time.Second,
		MaxConcurrent: 3,
		BatchSize:     5,
		MaxRetries:    3,
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
}

// Observer receives incremental store deltas after each tick. The Redis
// event publisher and the Neo4j lineage mirror implement it.
type Observer interface {
	SyncThoughts(ctx context.Context, changed []*thought.Thought, deleted []string) error
}

// Engine owns the scheduling loop. The entity stores are the only shared
// mutable state; per-thought mutual exclusion comes from the activeIDs set.
type Engine struct {
	cfg       Config
	thoughts  *store.Thoughts
	rules     *store.Rules
	registry  *tool.Registry
	toolCtx   *tool.Context
	observers []Observer
	logger    *zap.Logger

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an engine. The generator and memory handles may be nil; the
// corresponding fallback paths then degrade to the user-prompt path.
func New(cfg Config, thoughts *store.Thoughts, rules *store.Rules, registry *tool.Registry, gen tool.Generator, mem memory.Store, notifier tool.Notifier, logger *zap.Logger) *Engine {
	cfg.fillDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		cfg:      cfg,
		thoughts: thoughts,
		rules:    rules,
		registry: registry,
		logger:   logger,
		active:   make(map[string]struct{}),
		rng:      rand.New(rand.NewSource(seed)),
	}
	e.toolCtx = &tool.Context{
		Thoughts:  thoughts,
		Rules:     rules,
		Generator: gen,
		Memory:    mem,
		Notifier:  notifier,
		Logger:    logger,
	}
	return e
}

// Thoughts exposes the thought store for callers that enqueue work.
func (e *Engine) Thoughts() *store.Thoughts { return e.thoughts }

// Rules exposes the rule store.
func (e *Engine) Rules() *store.Rules { return e.rules }

// AddObserver registers a delta observer. Not safe to call after Run has
// started.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Enqueue adds a new pending thought of the given kind.
func (e *Engine) Enqueue(kind thought.Kind, content term.Term) *thought.Thought {
	t := thought.New(kind, content)
	e.thoughts.Add(t)
	e.logger.Info("thought enqueued",
		zap.String("id", t.ID),
		zap.String("kind", string(kind)))
	return t
}

// ActiveIDs returns a snapshot of the in-flight thought ids.
func (e *Engine) ActiveIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.active))
	for id := range e.active {
		out = append(out, id)
	}
	return out
}

// Sample draws one thought from the pending set, excluding in-flight ids
// and user prompts (those wait for a human, not a scheduling slot). The
// draw is weighted by max(0.01, priority or belief score) so low-confidence
// work is never starved while promising threads are still favored.
func (e *Engine) Sample() *thought.Thought {
	e.mu.Lock()
	claimed := make(map[string]struct{}, len(e.active))
	for id := range e.active {
		claimed[id] = struct{}{}
	}
	e.mu.Unlock()
	return e.sampleExcluding(claimed)
}

func (e *Engine) sampleExcluding(claimed map[string]struct{}) *thought.Thought {
	var candidates []*thought.Thought
	for _, t := range e.thoughts.ByStatus(thought.StatusPending) {
		if _, busy := claimed[t.ID]; busy {
			continue
		}
		if t.Kind == thought.KindUserPrompt {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil
	}

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, t := range candidates {
		w := t.Belief.Score()
		if t.Metadata.Priority > 0 {
			w = t.Metadata.Priority
		}
		if w < 0.01 {
			w = 0.01
		}
		weights[i] = w
		total += w
	}

	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	if total <= 0 {
		return candidates[e.rng.Intn(len(candidates))]
	}
	draw := e.rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if draw < acc {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}

// Tick fills scheduling slots up to the batch size and concurrency cap,
// spawning one processing task per claimed thought. It returns the number
// of thoughts claimed.
func (e *Engine) Tick(ctx context.Context) int {
	claimed := 0
	for claimed < e.cfg.BatchSize {
		e.mu.Lock()
		if len(e.active) >= e.cfg.MaxConcurrent {
			e.mu.Unlock()
			break
		}
		busy := make(map[string]struct{}, len(e.active))
		for id := range e.active {
			busy[id] = struct{}{}
		}
		t := e.sampleExcluding(busy)
		if t == nil {
			e.mu.Unlock()
			break
		}
		e.active[t.ID] = struct{}{}
		e.mu.Unlock()

		claimed++
		e.wg.Add(1)
		go func(t *thought.Thought) {
			defer e.wg.Done()
			defer e.release(t.ID)
			e.process(ctx, t)
		}(t)
	}

	e.syncObservers(ctx)
	return claimed
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	delete(e.active, id)
	e.mu.Unlock()
}

// syncObservers drains the thought store delta and fans it out.
func (e *Engine) syncObservers(ctx context.Context) {
	if len(e.observers) == 0 {
		return
	}
	changed, deleted := e.thoughts.DrainChanges()
	if len(changed) == 0 && len(deleted) == 0 {
		return
	}
	for _, o := range e.observers {
		if err := o.SyncThoughts(ctx, changed, deleted); err != nil {
			e.logger.Warn("observer sync failed", zap.Error(err))
		}
	}
}

// Run ticks until the context is cancelled, then waits for in-flight
// processing tasks to finish.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.logger.Info("engine running",
		zap.Duration("tick", e.cfg.TickInterval),
		zap.Int("max_concurrent", e.cfg.MaxConcurrent),
		zap.Int("batch_size", e.cfg.BatchSize))

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			e.syncObservers(context.Background())
			e.logger.Info("engine stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Wait blocks until all in-flight processing tasks complete. Tests use it
// to make a tick synchronous.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// process runs one claimed thought through match-or-fallback. Ordering
// within a thought is strictly sequential: claim, match, execute, update
// status, release.
func (e *Engine) process(ctx context.Context, t *thought.Thought) {
	claimed := t.Clone()
	claimed.Status = thought.StatusActive
	e.thoughts.Update(claimed)

	var err error
	if m := rule.FindBest(claimed, e.rules.All()); m != nil {
		err = e.executeAction(ctx, m, claimed)
	} else {
		err = e.fallback(ctx, claimed)
	}

	if err != nil {
		e.fail(t.ID, err)
		return
	}

	// The action or fallback is responsible for the final status. A thought
	// left active here indicates a scheduler bug and is routed through the
	// failure path rather than silently ignored.
	if current, ok := e.thoughts.Get(t.ID); ok && current.Status == thought.StatusActive {
		e.fail(t.ID, errStillActive)
	}
}

// fail applies retry bookkeeping: under budget the thought returns to
// pending, over budget it goes terminal with its last error retained.
func (e *Engine) fail(id string, cause error) {
	current, ok := e.thoughts.Get(id)
	if !ok {
		return
	}
	next := current.Clone()
	next.Metadata.Retries++
	next.Metadata.Error = truncateErr(cause)
	if next.Metadata.Retries >= e.cfg.MaxRetries {
		next.Status = thought.StatusFailed
		e.logger.Warn("thought failed permanently",
			zap.String("id", id),
			zap.Int("retries", next.Metadata.Retries),
			zap.String("error", next.Metadata.Error))
	} else {
		next.Status = thought.StatusPending
		e.logger.Info("thought will retry",
			zap.String("id", id),
			zap.Int("retries", next.Metadata.Retries),
			zap.String("error", next.Metadata.Error))
	}
	e.thoughts.Update(next)
}

// succeed marks the thought done and clears failure bookkeeping.
func (e *Engine) succeed(id string) {
	current, ok := e.thoughts.Get(id)
	if !ok {
		return
	}
	next := current.Clone()
	next.Status = thought.StatusDone
	next.Metadata.Error = ""
	next.Metadata.Retries = 0
	e.thoughts.Update(next)
}

const maxErrLen = 240

func truncateErr(err error) string {
	s := err.Error()
	if len(s) > maxErrLen {
		s = s[:maxErrLen] + "..."
	}
	return s
}
