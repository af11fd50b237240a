package cache

import "context"

// NoOpCache is used as a fallback when Redis is unavailable. Every read is a
// miss and every write succeeds without storing anything.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetEmbedding(context.Context, string, string) ([]float32, bool) {
	return nil, false
}

func (c *NoOpCache) SetEmbedding(context.Context, string, string, []float32) {}

func (c *NoOpCache) GetChatCompletion(context.Context, []ChatMessage, string, float64, int) (*ChatCompletion, bool) {
	return nil, false
}

func (c *NoOpCache) SetChatCompletion(context.Context, []ChatMessage, string, float64, int, *ChatCompletion) {
}

func (c *NoOpCache) GetAnswer(context.Context, string, []string, string) (*Answer, bool) {
	return nil, false
}

func (c *NoOpCache) SetAnswer(context.Context, string, []string, string, float64, *Answer) {}

func (c *NoOpCache) InvalidateAnswers(context.Context, string, string) {}

func (c *NoOpCache) Close() error { return nil }
