// Package cache provides content-addressed caching for embedding vectors,
// deterministic chat completions, and synthesized answers.
//
// All operations are best-effort: a miss and a backend failure look the same
// to the caller, and writes never report errors. A request must never fail
// because the cache is down.
package cache

import (
	"context"
)

// Answer is a cached synthesized answer together with the retrieval summary
// it was built from.
type Answer struct {
	Question         string     `json:"question"`
	Answer           string     `json:"answer"`
	Chunks           []ChunkRef `json:"chunks"`
	TotalChunksFound int        `json:"total_chunks_found"`
}

// ChunkRef summarizes one retrieved chunk inside a cached answer.
type ChunkRef struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"chunk_text"`
	Score      float64 `json:"similarity_score"`
	Index      int     `json:"chunk_index"`
}

// ChatCompletion is a cached chat-completion response.
type ChatCompletion struct {
	Content      string         `json:"content"`
	Model        string         `json:"model"`
	Provider     string         `json:"provider"`
	Usage        map[string]int `json:"usage"`
	FinishReason string         `json:"finish_reason"`
}

// ChatMessage mirrors one message of a chat request for key derivation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Cache is the shared contract for the Redis and no-op implementations.
// Getters report absence with a bool, never an error.
type Cache interface {
	// GetEmbedding returns the cached vector for (text, model).
	GetEmbedding(ctx context.Context, text, model string) ([]float32, bool)
	// SetEmbedding stores a vector under the embedding TTL.
	SetEmbedding(ctx context.Context, text, model string, vector []float32)

	// GetChatCompletion returns a cached completion. Non-zero temperature
	// always misses: the output would not be reproducible.
	GetChatCompletion(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int) (*ChatCompletion, bool)
	// SetChatCompletion stores a completion, refusing non-zero temperature.
	SetChatCompletion(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int, resp *ChatCompletion)

	// GetAnswer returns a cached synthesized answer for the normalized
	// question, optional document filter, and owner.
	GetAnswer(ctx context.Context, question string, documentIDs []string, userID string) (*Answer, bool)
	// SetAnswer stores an answer, refusing non-zero temperature, and indexes
	// it for invalidation by document and by owner.
	SetAnswer(ctx context.Context, question string, documentIDs []string, userID string, temperature float64, answer *Answer)
	// InvalidateAnswers drops every cached answer that referenced the
	// document, including the owner's unfiltered answers.
	InvalidateAnswers(ctx context.Context, userID, documentID string)

	// Close releases the backend connection.
	Close() error
}
