package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/halgrim/noema/internal/embedding"
)

// VolatileStore keeps memories in process, ranked by cosine similarity
// over an embedding provider. It backs tests and offline runs; nothing
// survives a restart.
type VolatileStore struct {
	embedder embedding.Provider

	mu      sync.RWMutex
	entries []volatileEntry
}

type volatileEntry struct {
	id      string
	content string
	vector  []float32
	meta    map[string]string
}

// NewVolatileStore creates an empty in-process store. A nil embedder
// defaults to the deterministic hash provider.
func NewVolatileStore(embedder embedding.Provider) *VolatileStore {
	if embedder == nil {
		embedder = embedding.NewHashProvider(0)
	}
	return &VolatileStore{embedder: embedder}
}

// Add embeds and stores the content.
func (s *VolatileStore) Add(ctx context.Context, content string, meta map[string]string) (string, error) {
	vectors, err := s.embedder.Embed(ctx, []string{content})
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	cp := make(map[string]string, len(meta))
	for k, v := range meta {
		cp[k] = v
	}
	s.mu.Lock()
	s.entries = append(s.entries, volatileEntry{id: id, content: content, vector: vectors[0], meta: cp})
	s.mu.Unlock()
	return id, nil
}

// Search returns the top-k entries by cosine similarity to the query.
func (s *VolatileStore) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	qv := vectors[0]

	s.mu.RLock()
	hits := make([]Hit, 0, len(s.entries))
	for _, e := range s.entries {
		hits = append(hits, Hit{
			ID:      e.id,
			Content: e.content,
			Score:   float32(cosine(qv, e.vector)),
			Meta:    e.meta,
		})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored memories.
func (s *VolatileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
