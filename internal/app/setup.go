// Package app wires configuration, storage, model providers and the
// pipeline into a running application. Every dependency is constructed
// here and handed down; nothing below this package reaches for globals.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuchat/docuchat/db"
	"github.com/docuchat/docuchat/internal/answer"
	"github.com/docuchat/docuchat/internal/chunk"
	"github.com/docuchat/docuchat/internal/config"
	"github.com/docuchat/docuchat/internal/database"
	"github.com/docuchat/docuchat/internal/document"
	"github.com/docuchat/docuchat/internal/embed"
	"github.com/docuchat/docuchat/internal/ingest"
	"github.com/docuchat/docuchat/internal/log"
	"github.com/docuchat/docuchat/internal/observability"
	"github.com/docuchat/docuchat/internal/retrieve"
	"github.com/docuchat/docuchat/internal/vecstore"
)

// embedRequestsPerSecond bounds outbound embedding calls across the whole
// process.
const embedRequestsPerSecond = 10

// App holds every wired component. Close releases them in reverse order.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Pool      *pgxpool.Pool
	Genkit    *genkit.Genkit
	Documents *document.Store
	Vectors   *vecstore.Store
	Ingester  *ingest.Service
	Retriever *retrieve.Coordinator
	Composer  *answer.Composer

	traceShutdown func(context.Context) error
}

// Setup builds the full application from configuration. The returned App
// has its ingestion workers already running.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(log.Config{})
	}

	// Tracing registers with Genkit's tracer provider, so it has to come
	// before genkit.Init.
	traceShutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.TraceEndpoint,
		ServiceName: cfg.TraceServiceName,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	embedder, err := provideEmbedClient(g, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	documents := document.NewStore(pool, logger)
	vectors := vecstore.NewStore(pool, logger)

	splitter, err := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating splitter: %w", err)
	}

	ingester, err := ingest.New(documents, vectors, embedder, splitter,
		cfg.IngestWorkers, cfg.IngestQueueSize, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating ingestion service: %w", err)
	}
	ingester.Start(ctx)

	retriever, err := retrieve.New(documents, vectors, embedder, cfg.TopK, logger)
	if err != nil {
		ingester.Close()
		pool.Close()
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	generator, err := answer.NewGenkitGenerator(g, cfg.FullModelName(),
		cfg.Temperature, cfg.MaxTokens, logger)
	if err != nil {
		ingester.Close()
		pool.Close()
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Pool:          pool,
		Genkit:        g,
		Documents:     documents,
		Vectors:       vectors,
		Ingester:      ingester,
		Retriever:     retriever,
		Composer:      answer.NewComposer(retriever, generator, logger),
		traceShutdown: traceShutdown,
	}, nil
}

// Close drains the ingestion workers, closes the pool and flushes traces.
func (a *App) Close() {
	a.Ingester.Close()
	a.Pool.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.traceShutdown(shutdownCtx); err != nil {
		a.Logger.Warn("shutting down tracer provider", "error", err)
	}
}

func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), nil); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no auto-discovery; models and embedders need explicit
		// registration.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}

	default:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
	}

	logger.Info("genkit initialized",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel)
	return g, nil
}

// provideEmbedClient looks up the provider's embedder and wraps it in the
// rate-limited client.
func provideEmbedClient(g *genkit.Genkit, cfg *config.Config, logger log.Logger) (*embed.Client, error) {
	var raw ai.Embedder
	switch cfg.Provider {
	case config.ProviderOllama:
		raw = ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		raw = genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		raw = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
	if raw == nil {
		return nil, fmt.Errorf("embedder %q not available from provider %s",
			cfg.EmbedderModel, cfg.Provider)
	}

	return embed.NewClient(raw, cfg.FullEmbedderName(), config.EmbeddingDimension,
		embedRequestsPerSecond, logger)
}
