package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/store"
	"github.com/halgrim/noema/internal/thought"
)

// DefaultDebounce batches bursts of changes into one snapshot write.
const DefaultDebounce = 2 * time.Second

// FileStore snapshots the entity stores to a single JSON file. It
// implements the engine's observer interface: each delta arms a debounce
// timer, and the timer's expiry writes the whole state atomically via a
// temp file and rename. Load restores the stores and demotes any thought
// that was mid-flight when the process died back to pending.
type FileStore struct {
	path     string
	debounce time.Duration
	thoughts *store.Thoughts
	rules    *store.Rules
	logger   *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewFileStore creates a snapshot store writing to path. A zero debounce
// uses the default.
func NewFileStore(path string, debounce time.Duration, thoughts *store.Thoughts, rules *store.Rules, logger *zap.Logger) *FileStore {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileStore{
		path:     path,
		debounce: debounce,
		thoughts: thoughts,
		rules:    rules,
		logger:   logger,
	}
}

// SyncThoughts arms the debounce timer. The delta itself is ignored; the
// snapshot always captures the full state.
func (f *FileStore) SyncThoughts(ctx context.Context, changed []*thought.Thought, deleted []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, func() {
		if err := f.Save(context.Background()); err != nil {
			f.logger.Error("snapshot write failed", zap.Error(err))
		}
	})
	return nil
}

// Save writes the full state now, bypassing the debounce.
func (f *FileStore) Save(ctx context.Context) error {
	snap := Snapshot{
		SavedAt:  time.Now().UTC().Format(time.RFC3339),
		Thoughts: f.thoughts.All(),
		Rules:    f.rules.All(),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	f.logger.Debug("snapshot written",
		zap.String("path", f.path),
		zap.Int("thoughts", len(snap.Thoughts)),
		zap.Int("rules", len(snap.Rules)))
	return nil
}

// Load restores the snapshot into the stores. A missing file is not an
// error; it just means a fresh start. Thoughts that were active at save
// time return to pending, since their processing task did not survive.
func (f *FileStore) Load(ctx context.Context) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	restored := 0
	for _, t := range snap.Thoughts {
		if t.Status == thought.StatusActive {
			t.Status = thought.StatusPending
		}
		f.thoughts.Add(t)
		restored++
	}
	for _, r := range snap.Rules {
		f.rules.Add(r)
	}
	// The restore itself is not a delta worth replaying downstream.
	f.thoughts.DrainChanges()
	f.rules.DrainChanges()

	f.logger.Info("snapshot restored",
		zap.String("path", f.path),
		zap.Int("thoughts", restored),
		zap.Int("rules", len(snap.Rules)))
	return nil
}

// Close stops any pending debounce timer and writes a final snapshot.
func (f *FileStore) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	return f.Save(ctx)
}
