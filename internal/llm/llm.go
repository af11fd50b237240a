// Package llm wraps external chat-completion providers behind a typed
// request/response contract.
package llm

import (
	"context"
	"errors"
)

// ErrUnsupportedProvider is returned for providers this build cannot reach.
var ErrUnsupportedProvider = errors.New("unsupported llm provider")

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a fully specified chat-completion call. Every field is explicit;
// there are no provider-side defaults hiding in the payload.
type Request struct {
	Messages    []Message `json:"messages"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Usage is the provider's token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the provider's answer.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finish_reason"`
	Cached       bool   `json:"cached"`
}

// Client is a minimal chat-completion interface to allow pluggable providers.
type Client interface {
	ChatCompletion(ctx context.Context, req Request) (Response, error)
}
