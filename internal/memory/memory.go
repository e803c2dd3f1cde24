// Package memory implements the similarity-search collaborator the engine
// reaches through the memory tools: add a piece of content, search for the
// k most relevant pieces.
package memory

import "context"

// Hit is a single search result.
type Hit struct {
	ID      string
	Content string
	Score   float32
	Meta    map[string]string
}

// Store is the narrow surface the engine depends on. Content is the
// canonical text of a term; Meta carries provenance (thought id, kind).
type Store interface {
	Add(ctx context.Context, content string, meta map[string]string) (id string, err error)
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}
