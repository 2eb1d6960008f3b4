// Package retrieve answers "which chunks back this question" for one
// owner's one thread. It embeds the question with the same provider the
// collection was built with and queries only that collection, so nothing
// from another thread can surface.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docuchat/docuchat/internal/embed"
	"github.com/docuchat/docuchat/internal/vecstore"
)

// DocumentCounter reports how many ready documents a collection holds.
type DocumentCounter interface {
	CountReady(ctx context.Context, collectionKey string) (int, error)
}

// VectorQuerier is what retrieval needs from the vector store.
type VectorQuerier interface {
	CollectionModel(ctx context.Context, key string) (model string, dimension int, err error)
	Query(ctx context.Context, key string, vector []float32, topK int) ([]vecstore.Match, error)
}

// Result is one retrieved chunk, ready for prompt assembly.
type Result struct {
	ChunkText      string
	SourceFilename string
	Score          float32
}

// Coordinator performs thread-scoped retrieval. Safe for concurrent use.
type Coordinator struct {
	docs     DocumentCounter
	store    VectorQuerier
	embedder embed.Provider
	topK     int
	logger   *slog.Logger
}

// New creates a Coordinator returning at most topK chunks per question.
func New(docs DocumentCounter, store VectorQuerier, embedder embed.Provider, topK int, logger *slog.Logger) (*Coordinator, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		docs:     docs,
		store:    store,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}, nil
}

// Retrieve returns the chunks most similar to question within the owner's
// thread, best first. A thread with no ready documents returns (nil, nil)
// without touching the embedding provider, so empty threads cost nothing
// and cannot fail on provider errors.
func (c *Coordinator) Retrieve(ctx context.Context, ownerID, threadID, question string) ([]Result, error) {
	key := vecstore.Key(ownerID, threadID)

	count, err := c.docs.CountReady(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", key, err)
	}
	if count == 0 {
		return nil, nil
	}

	model, _, err := c.store.CollectionModel(ctx, key)
	if err != nil {
		// Ready documents imply the collection row exists; a miss here
		// means the state is inconsistent.
		return nil, fmt.Errorf("loading collection %s: %w", key, err)
	}
	if model != c.embedder.Model() {
		return nil, fmt.Errorf("%w: collection %s built with %s, current embedder is %s",
			vecstore.ErrProviderMismatch, key, model, c.embedder.Model())
	}

	vector, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	matches, err := c.store.Query(ctx, key, vector, c.topK)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", key, err)
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			ChunkText:      m.Content,
			SourceFilename: m.SourceFilename,
			Score:          m.Score,
		}
	}

	c.logger.Debug("retrieval complete",
		"collection", key,
		"matches", len(results))
	return results, nil
}

// HasDocuments reports whether the owner's thread has any ready documents.
func (c *Coordinator) HasDocuments(ctx context.Context, ownerID, threadID string) (bool, error) {
	count, err := c.docs.CountReady(ctx, vecstore.Key(ownerID, threadID))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsProviderMismatch reports whether err is the collection/embedder
// mismatch condition.
func IsProviderMismatch(err error) bool {
	return errors.Is(err, vecstore.ErrProviderMismatch)
}
