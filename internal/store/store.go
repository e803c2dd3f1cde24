// Package store provides the in-memory entity stores shared by the engine:
// a generic keyed collection with atomic change-delta bookkeeping, plus
// typed wrappers for thoughts and rules.
package store

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Entity is anything the store can hold. IDs are globally unique within a
// store.
type Entity interface {
	EntityID() string
}

// MinPrefixLen is the shortest id prefix FindByIDPrefix will resolve.
const MinPrefixLen = 3

// Store is a mutex-guarded keyed collection. Every mutation is recorded in
// a pending-changes set so observers can synchronize incrementally via
// DrainChanges without re-scanning the whole collection. Mutations are
// atomic with respect to delta bookkeeping: concurrent callers never
// observe a partial update.
type Store[T Entity] struct {
	name string

	mu      sync.RWMutex
	items   map[string]T
	changed map[string]struct{}
	deleted map[string]struct{}

	logger *zap.Logger
}

// New creates an empty store. The name shows up in logs only.
func New[T Entity](name string, logger *zap.Logger) *Store[T] {
	return &Store[T]{
		name:    name,
		items:   make(map[string]T),
		changed: make(map[string]struct{}),
		deleted: make(map[string]struct{}),
		logger:  logger,
	}
}

// Add inserts or replaces the item and records it in the change set.
func (s *Store[T]) Add(item T) {
	id := item.EntityID()
	s.mu.Lock()
	s.items[id] = item
	s.changed[id] = struct{}{}
	delete(s.deleted, id)
	s.mu.Unlock()
}

// Get returns the item by exact id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Update upserts the item: if the id is unknown it behaves as Add.
func (s *Store[T]) Update(item T) {
	s.Add(item)
}

// Delete removes the item and records the deletion. Returns false if the
// id was not present.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	delete(s.changed, id)
	s.deleted[id] = struct{}{}
	return true
}

// All returns a snapshot slice of every stored item.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out
}

// Len returns the number of stored items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// FindByIDPrefix resolves an id prefix to a single item. Prefixes shorter
// than MinPrefixLen never resolve, and an ambiguous prefix returns nothing
// rather than an arbitrary match.
func (s *Store[T]) FindByIDPrefix(prefix string) (T, bool) {
	var zero T
	if len(prefix) < MinPrefixLen {
		return zero, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found T
	count := 0
	for id, item := range s.items {
		if strings.HasPrefix(id, prefix) {
			found = item
			count++
			if count > 1 {
				return zero, false
			}
		}
	}
	if count != 1 {
		return zero, false
	}
	return found, true
}

// DrainChanges returns the accumulated delta since the last drain (items
// added or updated plus ids deleted) and clears it. An id changed and then
// deleted before the drain shows up only as a deletion.
func (s *Store[T]) DrainChanges() (changed []T, deleted []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.changed {
		if item, ok := s.items[id]; ok {
			changed = append(changed, item)
		}
	}
	for id := range s.deleted {
		deleted = append(deleted, id)
	}
	s.changed = make(map[string]struct{})
	s.deleted = make(map[string]struct{})

	if s.logger != nil && (len(changed) > 0 || len(deleted) > 0) {
		s.logger.Debug("drained store changes",
			zap.String("store", s.name),
			zap.Int("changed", len(changed)),
			zap.Int("deleted", len(deleted)))
	}
	return changed, deleted
}
