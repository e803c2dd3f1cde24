package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashProvider is a deterministic in-process embedder: token n-grams are
// hashed into a fixed-size vector which is then L2-normalized. It needs no
// network and always produces the same vector for the same text, which
// makes it suitable for tests and offline runs. It captures token overlap,
// not semantics.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a HashProvider with the given dimension
// (default 256).
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashProvider{dimension: dimension}
}

// Embed hashes each text into a normalized vector.
func (p *HashProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embedOne(text)
	}
	return out, nil
}

func (p *HashProvider) embedOne(text string) []float32 {
	vec := make([]float32, p.dimension)
	tokens := strings.Fields(strings.ToLower(text))
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(p.dimension)]++
		// Character trigrams soften exact-token matching.
		for j := 0; j+3 <= len(tok); j++ {
			g := fnv.New32a()
			g.Write([]byte(tok[j : j+3]))
			vec[g.Sum32()%uint32(p.dimension)] += 0.5
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

// Dimension returns the fixed vector dimension.
func (p *HashProvider) Dimension() int { return p.dimension }
