// Package config loads and validates application configuration from a
// config file and environment variables using viper. Environment variables
// take precedence over the file; defaults cover everything else, so a fresh
// install runs with nothing but provider credentials set.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Supported model providers.
const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)

// EmbeddingDimension is the vector width every collection is created with.
// The schema pins chunk embeddings to this width, so embedder models that
// produce a different dimensionality are rejected at validation time.
const EmbeddingDimension = 768

// Config holds all runtime settings.
type Config struct {
	// Provider selects the model backend: googleai, openai or ollama.
	Provider string `mapstructure:"provider"`
	// ModelName is the generation model, unqualified (e.g. "gemini-2.5-flash").
	ModelName string `mapstructure:"model_name"`
	// EmbedderModel is the embedding model (e.g. "text-embedding-004").
	EmbedderModel string `mapstructure:"embedder_model"`
	// Temperature for answer generation.
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps generated answer length.
	MaxTokens int `mapstructure:"max_tokens"`
	// OllamaHost is the Ollama server address, used only with the ollama provider.
	OllamaHost string `mapstructure:"ollama_host"`

	// ChunkSize is the target chunk length in characters.
	ChunkSize int `mapstructure:"chunk_size"`
	// ChunkOverlap is the number of characters shared between adjacent chunks.
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	// TopK is the number of chunks retrieved per question.
	TopK int `mapstructure:"top_k"`

	// IngestWorkers is the number of background ingestion workers.
	IngestWorkers int `mapstructure:"ingest_workers"`
	// IngestQueueSize bounds the ingestion task queue.
	IngestQueueSize int `mapstructure:"ingest_queue_size"`

	// ListenAddr is the HTTP server bind address.
	ListenAddr string `mapstructure:"listen_addr"`

	// PostgresHost is the database server host.
	PostgresHost string `mapstructure:"postgres_host"`
	// PostgresPort is the database server port.
	PostgresPort int `mapstructure:"postgres_port"`
	// PostgresUser is the database user.
	PostgresUser string `mapstructure:"postgres_user"`
	// PostgresPassword is the database password. Masked in JSON output.
	PostgresPassword string `mapstructure:"postgres_password"`
	// PostgresDB is the database name.
	PostgresDB string `mapstructure:"postgres_db"`
	// PostgresSSLMode is the sslmode connection parameter.
	PostgresSSLMode string `mapstructure:"postgres_sslmode"`

	// TraceEndpoint is the OTLP HTTP endpoint for trace export. Empty
	// disables tracing.
	TraceEndpoint string `mapstructure:"trace_endpoint"`
	// TraceServiceName names this service in exported traces.
	TraceServiceName string `mapstructure:"trace_service_name"`
	// Environment tags traces (development, staging, production).
	Environment string `mapstructure:"environment"`

	// LogJSON switches log output to JSON handlers.
	LogJSON bool `mapstructure:"log_json"`
}

// Load reads configuration from ~/.docuchat/config.yaml (if present) and
// DOCUCHAT_* environment variables, applies defaults, and validates the
// result.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("DOCUCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if err := parseDatabaseURL(&cfg, dbURL); err != nil {
			return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("embedder_model", "text-embedding-004")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("ollama_host", "http://localhost:11434")

	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("top_k", 4)

	v.SetDefault("ingest_workers", 4)
	v.SetDefault("ingest_queue_size", 64)

	v.SetDefault("listen_addr", ":8080")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "docuchat")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db", "docuchat")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("trace_endpoint", "")
	v.SetDefault("trace_service_name", "docuchat")
	v.SetDefault("environment", "development")

	v.SetDefault("log_json", false)
}

// bindEnvVariables binds every config key explicitly so viper.Unmarshal
// sees environment values even when no config file exists.
func bindEnvVariables(v *viper.Viper) {
	keys := []string{
		"provider", "model_name", "embedder_model", "temperature",
		"max_tokens", "ollama_host",
		"chunk_size", "chunk_overlap", "top_k",
		"ingest_workers", "ingest_queue_size",
		"listen_addr",
		"postgres_host", "postgres_port", "postgres_user",
		"postgres_password", "postgres_db", "postgres_sslmode",
		"trace_endpoint", "trace_service_name", "environment",
		"log_json",
	}
	for _, key := range keys {
		mustBind(v, key)
	}
}

func mustBind(v *viper.Viper, key string) {
	if err := v.BindEnv(key); err != nil {
		// BindEnv only fails on an empty key, which is a programming error.
		panic(fmt.Sprintf("config: binding %q: %v", key, err))
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".docuchat"), nil
}

// FullModelName returns the provider-qualified generation model name as
// registered with genkit, e.g. "googleai/gemini-2.5-flash".
func (c *Config) FullModelName() string {
	return c.Provider + "/" + c.ModelName
}

// FullEmbedderName returns the provider-qualified embedder name.
func (c *Config) FullEmbedderName() string {
	return c.Provider + "/" + c.EmbedderModel
}

// MarshalJSON masks the database password so dumped configuration is safe
// to log.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	masked.PostgresPassword = maskSecret(c.PostgresPassword)
	return json.Marshal(masked)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
