// Package app wires runtime dependencies for the service binaries.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"docqa/internal/cache"
	"docqa/internal/config"
	"docqa/internal/embeddings"
	"docqa/internal/llm"
	"docqa/internal/logger"
	"docqa/internal/metrics"
	"docqa/internal/queue"
	"docqa/internal/storage"
	"docqa/internal/store"
)

// Deps bundles the runtime dependencies of the ingest service.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Store    store.Store
	Cache    cache.Cache
	Queue    queue.Queue
	Objects  storage.ObjectStore
	Embedder embeddings.Embedder
	Metrics  *metrics.Metrics

	natsConn *nats.Conn
}

// QueryDeps bundles the runtime dependencies of the query service.
type QueryDeps struct {
	Config   config.Config
	Log      *slog.Logger
	Store    store.Store
	Cache    cache.Cache
	Embedder embeddings.Embedder
	LLM      llm.Client
	Metrics  *metrics.Metrics
}

// Build loads env, config, and the components the ingest service needs.
func Build() (Deps, error) {
	cfg, log := buildBase()
	m := metrics.New("ingest")

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	c := buildCache(cfg, log)
	nc, q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	objects, err := storage.NewFSStore(cfg.StorageRoot)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	embedder, err := buildEmbedder(cfg, log, c, m)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return Deps{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Cache:    c,
		Queue:    q,
		Objects:  objects,
		Embedder: embedder,
		Metrics:  m,
		natsConn: nc,
	}, nil
}

// Close releases the ingest service's connections.
func (d Deps) Close() {
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	if d.Cache != nil {
		_ = d.Cache.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
}

// BuildQuery loads env, config, and the components the query service needs.
func BuildQuery() (QueryDeps, error) {
	cfg, log := buildBase()
	m := metrics.New("rag")

	st, err := buildStore(cfg, log)
	if err != nil {
		return QueryDeps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	c := buildCache(cfg, log)
	embedder, err := buildEmbedder(cfg, log, c, m)
	if err != nil {
		return QueryDeps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	llmClient, err := buildLLM(cfg, log, c, m)
	if err != nil {
		return QueryDeps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return QueryDeps{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Cache:    c,
		Embedder: embedder,
		LLM:      llmClient,
		Metrics:  m,
	}, nil
}

// Close releases the query service's connections.
func (d QueryDeps) Close() {
	if d.Cache != nil {
		_ = d.Cache.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
}

func buildBase() (config.Config, *slog.Logger) {
	// A missing .env is fine in containerized deployments.
	_ = godotenv.Load()
	cfg := config.Load()
	return cfg, logger.New(cfg.LogLevel)
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	db, err := store.NewPostgres(cfg.DBURL, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
	}
	log.Info("using Postgres store", "dimension", cfg.EmbeddingDim)
	return db, nil
}

// buildCache never fails the service: an unreachable Redis degrades to the
// no-op cache, which misses on every read and drops every write.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(log, cfg.RedisAddr, cfg.RedisPassword,
			time.Duration(cfg.EmbeddingCacheTTL)*time.Second,
			time.Duration(cfg.AnswerCacheTTL)*time.Second)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis cache", "addr", cfg.RedisAddr)
		return c
	default:
		log.Info("caching disabled")
		return cache.NewNoOpCache()
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (*nats.Conn, queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return nc, queue.NewNATS(log, nc), nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}

func buildEmbedder(cfg config.Config, log *slog.Logger, c cache.Cache, m *metrics.Metrics) (embeddings.Embedder, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
		return embeddings.NewCachedEmbedder(embedder, c, cfg.EmbedBatchSize, m), nil
	default:
		return nil, fmt.Errorf("%w: %s", llm.ErrUnsupportedProvider, cfg.LLMProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger, c cache.Cache, m *metrics.Metrics) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
		return llm.NewCachedClient(client, c, m), nil
	default:
		return nil, fmt.Errorf("%w: %s", llm.ErrUnsupportedProvider, cfg.LLMProvider)
	}
}
