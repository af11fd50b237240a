package llm

import (
	"context"
	"time"

	"docqa/internal/cache"
	"docqa/internal/metrics"
)

// CachedClient fronts a Client with the deterministic completion cache.
// Requests with non-zero temperature bypass the cache entirely; the cache
// itself enforces the same gate, so the invariant holds even if a different
// caller reaches it directly.
type CachedClient struct {
	inner   Client
	cache   cache.Cache
	metrics *metrics.Metrics
}

// NewCachedClient wraps inner with c. m may be nil.
func NewCachedClient(inner Client, c cache.Cache, m *metrics.Metrics) *CachedClient {
	return &CachedClient{inner: inner, cache: c, metrics: m}
}

func (c *CachedClient) ChatCompletion(ctx context.Context, req Request) (Response, error) {
	messages := toCacheMessages(req.Messages)

	if hit, ok := c.cache.GetChatCompletion(ctx, messages, req.Model, req.Temperature, req.MaxTokens); ok {
		c.metrics.CacheHit("chat")
		return Response{
			Content:      hit.Content,
			Model:        hit.Model,
			Provider:     hit.Provider,
			Usage:        usageFromMap(hit.Usage),
			FinishReason: hit.FinishReason,
			Cached:       true,
		}, nil
	}

	c.metrics.CacheMiss("chat")
	start := time.Now()
	resp, err := c.inner.ChatCompletion(ctx, req)
	c.metrics.ProviderCall(req.Model, "chat", time.Since(start), err)
	if err != nil {
		return Response{}, err
	}
	c.metrics.AddTokens(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	c.cache.SetChatCompletion(ctx, messages, req.Model, req.Temperature, req.MaxTokens, &cache.ChatCompletion{
		Content:      resp.Content,
		Model:        resp.Model,
		Provider:     resp.Provider,
		Usage:        usageToMap(resp.Usage),
		FinishReason: resp.FinishReason,
	})
	return resp, nil
}

func toCacheMessages(messages []Message) []cache.ChatMessage {
	out := make([]cache.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = cache.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func usageToMap(u Usage) map[string]int {
	return map[string]int{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
		"total_tokens":      u.TotalTokens,
	}
}

func usageFromMap(m map[string]int) Usage {
	return Usage{
		PromptTokens:     m["prompt_tokens"],
		CompletionTokens: m["completion_tokens"],
		TotalTokens:      m["total_tokens"],
	}
}
