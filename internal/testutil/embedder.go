package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// HashEmbedder is a deterministic embed.Provider for tests. Each token in
// the input bumps one vector component chosen by its FNV hash, and the
// result is L2-normalized. Texts sharing tokens therefore score higher
// cosine similarity than unrelated texts, which is enough structure for
// retrieval tests without a real model.
type HashEmbedder struct {
	Dim int

	mu        sync.Mutex
	callCount int
}

// NewHashEmbedder creates a HashEmbedder producing dim-wide vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

// Embed returns the bag-of-words hash vector for text.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	h.callCount++
	h.mu.Unlock()

	vec := make([]float32, h.Dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]")
		if token == "" {
			continue
		}
		f := fnv.New32a()
		f.Write([]byte(token))
		vec[int(f.Sum32())%h.Dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	} else {
		// Degenerate input still gets a valid unit vector.
		vec[0] = 1
	}
	return vec, nil
}

// Dimension returns the configured vector width.
func (h *HashEmbedder) Dimension() int { return h.Dim }

// Model returns a fixed test model name.
func (h *HashEmbedder) Model() string { return "test/hash-embedder" }

// CallCount returns how many times Embed has been invoked.
func (h *HashEmbedder) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.callCount
}
