// Package embed wraps a genkit embedder behind a small provider interface
// with rate limiting, bounded retries and input validation. Callers receive
// the embedder through constructor injection; nothing in this package holds
// global state.
package embed

import "context"

// Provider produces embedding vectors for text. Implementations must be
// safe for concurrent use.
type Provider interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the width of vectors this provider produces.
	Dimension() int
	// Model returns the model identifier, stored per collection so a
	// collection is never mixed across embedders.
	Model() string
}
