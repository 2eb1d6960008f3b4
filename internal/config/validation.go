package config

import (
	"errors"
	"fmt"
)

// Validation sentinel errors. Callers match these with errors.Is to tell
// configuration mistakes apart from environment failures.
var (
	ErrInvalidProvider    = errors.New("invalid provider")
	ErrInvalidModelName   = errors.New("invalid model name")
	ErrInvalidEmbedder    = errors.New("invalid embedder model")
	ErrInvalidTemperature = errors.New("invalid temperature")
	ErrInvalidMaxTokens   = errors.New("invalid max tokens")
	ErrInvalidChunking    = errors.New("invalid chunking parameters")
	ErrInvalidTopK        = errors.New("invalid top k")
	ErrInvalidWorkers     = errors.New("invalid ingest worker settings")
	ErrInvalidPostgres    = errors.New("invalid postgres settings")
)

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGoogleAI, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("%w: %q (want %s, %s or %s)",
			ErrInvalidProvider, c.Provider, ProviderGoogleAI, ProviderOpenAI, ProviderOllama)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEmbedder)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %g (want 0..2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d with chunk_size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.TopK <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.TopK)
	}

	if c.IngestWorkers <= 0 {
		return fmt.Errorf("%w: ingest_workers %d", ErrInvalidWorkers, c.IngestWorkers)
	}
	if c.IngestQueueSize <= 0 {
		return fmt.Errorf("%w: ingest_queue_size %d", ErrInvalidWorkers, c.IngestQueueSize)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidPostgres)
	}
	if c.PostgresPort <= 0 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidPostgres)
	}
	if c.PostgresDB == "" {
		return fmt.Errorf("%w: empty database name", ErrInvalidPostgres)
	}

	return nil
}
