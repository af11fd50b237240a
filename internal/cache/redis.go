package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 2 * time.Second

// RedisCache stores entries in Redis with per-kind TTLs. Backend errors are
// logged and degrade to misses; they are never returned to callers.
type RedisCache struct {
	client       *redis.Client
	log          *slog.Logger
	embeddingTTL time.Duration
	answerTTL    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(log *slog.Logger, addr, password string, embeddingTTL, answerTTL time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{
		client:       client,
		log:          log,
		embeddingTTL: embeddingTTL,
		answerTTL:    answerTTL,
	}, nil
}

func (c *RedisCache) GetEmbedding(ctx context.Context, text, model string) ([]float32, bool) {
	var vector []float32
	if !c.getJSON(ctx, EmbeddingKey(text, model), &vector) {
		return nil, false
	}
	return vector, true
}

func (c *RedisCache) SetEmbedding(ctx context.Context, text, model string, vector []float32) {
	c.setJSON(ctx, EmbeddingKey(text, model), vector, c.embeddingTTL)
}

func (c *RedisCache) GetChatCompletion(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int) (*ChatCompletion, bool) {
	if temperature != 0 {
		return nil, false
	}
	var resp ChatCompletion
	if !c.getJSON(ctx, ChatKey(messages, model, maxTokens), &resp) {
		return nil, false
	}
	return &resp, true
}

func (c *RedisCache) SetChatCompletion(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int, resp *ChatCompletion) {
	if temperature != 0 || resp == nil {
		return
	}
	c.setJSON(ctx, ChatKey(messages, model, maxTokens), resp, c.answerTTL)
}

func (c *RedisCache) GetAnswer(ctx context.Context, question string, documentIDs []string, userID string) (*Answer, bool) {
	var ans Answer
	if !c.getJSON(ctx, AnswerKey(question, documentIDs, userID), &ans) {
		return nil, false
	}
	return &ans, true
}

func (c *RedisCache) SetAnswer(ctx context.Context, question string, documentIDs []string, userID string, temperature float64, answer *Answer) {
	if temperature != 0 || answer == nil {
		return
	}
	key := AnswerKey(question, documentIDs, userID)
	c.setJSON(ctx, key, answer, c.answerTTL)

	// Register the key in the invalidation indexes so chunk changes can
	// find it. Index sets outlive the entries slightly; stale members are
	// harmless deletes.
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	for _, index := range answerIndexKeys(documentIDs, userID) {
		pipe := c.client.Pipeline()
		pipe.SAdd(opCtx, index, key)
		pipe.Expire(opCtx, index, c.answerTTL)
		if _, err := pipe.Exec(opCtx); err != nil {
			c.log.Warn("answer index update failed", "err", err)
		}
	}
}

func (c *RedisCache) InvalidateAnswers(ctx context.Context, userID, documentID string) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	indexes := []string{
		answerPrefix + ":index:doc:" + documentID,
		answerPrefix + ":index:user:" + userID,
	}
	for _, index := range indexes {
		keys, err := c.client.SMembers(opCtx, index).Result()
		if err != nil {
			c.log.Warn("answer invalidation scan failed", "index", index, "err", err)
			continue
		}
		if len(keys) > 0 {
			if err := c.client.Del(opCtx, keys...).Err(); err != nil {
				c.log.Warn("answer invalidation delete failed", "err", err)
			}
		}
		if err := c.client.Del(opCtx, index).Err(); err != nil {
			c.log.Warn("answer index delete failed", "err", err)
		}
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dest any) bool {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	data, err := c.client.Get(opCtx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Warn("cache get failed", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn("cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (c *RedisCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", "key", key, "err", err)
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.client.Set(opCtx, key, data, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "err", err)
	}
}
