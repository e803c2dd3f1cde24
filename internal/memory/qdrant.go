package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/embedding"
	"github.com/halgrim/noema/internal/vectorstore"
)

// DefaultCollection is the Qdrant collection holding remembered content.
const DefaultCollection = "memories"

// QdrantStore persists content as embedded points in Qdrant.
type QdrantStore struct {
	embedder   embedding.Provider
	client     *vectorstore.Client
	collection string
	logger     *zap.Logger
}

// NewQdrantStore creates the store and ensures its collection exists.
func NewQdrantStore(ctx context.Context, embedder embedding.Provider, client *vectorstore.Client, logger *zap.Logger) (*QdrantStore, error) {
	dim := uint64(embedder.Dimension())
	if dim == 0 {
		dim = 1024
	}
	if err := client.EnsureCollection(ctx, DefaultCollection, dim); err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	return &QdrantStore{
		embedder:   embedder,
		client:     client,
		collection: DefaultCollection,
		logger:     logger,
	}, nil
}

// Add embeds the content and upserts it with its metadata.
func (s *QdrantStore) Add(ctx context.Context, content string, meta map[string]string) (string, error) {
	vectors, err := s.embedder.Embed(ctx, []string{content})
	if err != nil {
		return "", fmt.Errorf("memory: embed: %w", err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("memory: embedder returned no vector")
	}

	id := uuid.New().String()
	payload := map[string]string{"content": content}
	for k, v := range meta {
		payload[k] = v
	}
	if err := s.client.Upsert(ctx, s.collection, id, vectors[0], payload); err != nil {
		return "", fmt.Errorf("memory: %w", err)
	}
	s.logger.Debug("memory added", zap.String("id", id), zap.Int("len", len(content)))
	return id, nil
}

// Search embeds the query and returns the top-k nearest memories.
func (s *QdrantStore) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("memory: embedder returned no vector")
	}

	raw, err := s.client.Search(ctx, s.collection, vectors[0], uint64(k))
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	hits := make([]Hit, 0, len(raw))
	for _, r := range raw {
		content := r.Payload["content"]
		meta := make(map[string]string, len(r.Payload))
		for pk, pv := range r.Payload {
			if pk != "content" {
				meta[pk] = pv
			}
		}
		hits = append(hits, Hit{ID: r.ID, Content: content, Score: r.Score, Meta: meta})
	}
	return hits, nil
}
