package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Generator produces model text for a system prompt and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// RetryConfig configures retry behavior for generation calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns defaults suited to LLM API latency.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category. Matched
// case-insensitively against err.Error().
//
// NOTE: This uses string matching because Genkit and LLM provider SDKs do
// not expose typed errors for transient failures. Re-evaluate if Genkit
// adds structured error types in a future version.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}

// GenkitGenerator implements Generator on a genkit instance.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
	temp      float64
	maxTokens int
	retry     RetryConfig
	logger    *slog.Logger
}

// NewGenkitGenerator creates a generator bound to a provider-qualified
// model name (e.g. "googleai/gemini-2.5-flash").
func NewGenkitGenerator(g *genkit.Genkit, modelName string, temperature float64, maxTokens int, logger *slog.Logger) (*GenkitGenerator, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance must not be nil")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenkitGenerator{
		g:         g,
		modelName: modelName,
		temp:      temperature,
		maxTokens: maxTokens,
		retry:     DefaultRetryConfig(),
		logger:    logger,
	}, nil
}

// Generate runs the model with retry on transient failures.
func (gg *GenkitGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	delay := gg.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= gg.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			gg.logger.Warn("generation retry",
				"attempt", attempt,
				"delay", delay,
				"elapsed", time.Since(start),
				"error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > gg.retry.MaxInterval {
				delay = gg.retry.MaxInterval
			}
		}

		resp, err := genkit.Generate(ctx, gg.g,
			ai.WithModelName(gg.modelName),
			ai.WithSystem(system),
			ai.WithPrompt(prompt),
			ai.WithConfig(map[string]any{
				"temperature":     gg.temp,
				"maxOutputTokens": gg.maxTokens,
			}),
		)
		if err == nil {
			return resp.Text(), nil
		}
		lastErr = err
		if !retryableError(err) {
			return "", fmt.Errorf("generating with %s: %w", gg.modelName, err)
		}
	}
	return "", fmt.Errorf("generating with %s after %d attempts: %w",
		gg.modelName, gg.retry.MaxRetries+1, lastErr)
}
