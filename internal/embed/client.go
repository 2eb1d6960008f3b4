package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
)

const (
	// maxInputBytes rejects inputs far beyond any sane chunk size before
	// they reach the provider.
	maxInputBytes = 32 * 1024

	maxAttempts    = 3
	attemptTimeout = 30 * time.Second
	baseBackoff    = time.Second
)

// Client implements Provider on top of a genkit ai.Embedder, adding rate
// limiting, retry on transient failures and response validation.
type Client struct {
	embedder  ai.Embedder
	model     string
	dimension int
	limiter   *rate.Limiter
	logger    *slog.Logger
	backoff   time.Duration
}

// NewClient wraps embedder. model and dimension describe what the embedder
// produces; every response vector is checked against dimension. rps bounds
// the request rate. A nil logger falls back to slog.Default.
func NewClient(embedder ai.Embedder, model string, dimension int, rps float64, logger *slog.Logger) (*Client, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder must not be nil")
	}
	if model == "" {
		return nil, fmt.Errorf("model must not be empty")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if rps <= 0 {
		return nil, fmt.Errorf("rps must be positive, got %g", rps)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		embedder:  embedder,
		model:     model,
		dimension: dimension,
		limiter:   rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:    logger,
		backoff:   baseBackoff,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Dimension returns the configured vector width.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns the embedding for text. Transient provider failures are
// retried up to maxAttempts with exponential backoff; quota exhaustion and
// malformed input fail immediately.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrMalformedInput)
	}
	if len(text) > maxInputBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrMalformedInput, len(text), maxInputBytes)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		vec, err := c.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		sentinel := classify(err)
		if sentinel == ErrQuotaExhausted {
			return nil, fmt.Errorf("%w: %w", ErrQuotaExhausted, err)
		}
		if sentinel != ErrRateLimited {
			return nil, fmt.Errorf("embedding with %s: %w", c.model, err)
		}
		if attempt == maxAttempts {
			break
		}

		backoff := c.backoff * time.Duration(1<<(attempt-1))
		c.logger.Warn("embedding attempt failed, retrying",
			"model", c.model,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrRateLimited, lastErr)
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("provider returned no embeddings")
	}

	vec := resp.Embeddings[0].Embedding
	if len(vec) != c.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), c.dimension)
	}
	return vec, nil
}
