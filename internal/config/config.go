package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the ingest and query services.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Store
	DBURL string `env:"DB_URL"`

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"redis"` // "redis" or "noop"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	// TTLs in seconds
	EmbeddingCacheTTL int `env:"EMBEDDING_CACHE_TTL" envDefault:"3600"`
	AnswerCacheTTL    int `env:"ANSWER_CACHE_TTL" envDefault:"1800"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"`
	QueueURL      string `env:"QUEUE_URL"`

	// Object storage root for uploaded files
	StorageRoot string `env:"STORAGE_ROOT" envDefault:"/var/lib/docqa/uploads"`

	// LLM & embeddings
	LLMProvider    string  `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIKey      string  `env:"OPENAI_API_KEY"`
	LLMModel       string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDim   int     `env:"EMBEDDING_DIM" envDefault:"1536"`
	EmbedBatchSize int     `env:"EMBED_BATCH_SIZE" envDefault:"100"`
	MaxTokens      int     `env:"MAX_TOKENS" envDefault:"500"`
	Temperature    float64 `env:"TEMPERATURE" envDefault:"0"`

	// Text processing
	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"200"`
	MaxChunks    int `env:"MAX_CHUNKS_PER_DOCUMENT" envDefault:"500"`

	// Retrieval
	TopK                int     `env:"TOP_K_RESULTS" envDefault:"5"`
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.7"`
	MaxContextLength    int     `env:"MAX_CONTEXT_LENGTH" envDefault:"4000"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
