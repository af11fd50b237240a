package cache

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCache is a mock implementation of the Cache interface for testing.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetEmbedding(ctx context.Context, text, model string) ([]float32, bool) {
	args := m.Called(ctx, text, model)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]float32), args.Bool(1)
}

func (m *MockCache) SetEmbedding(ctx context.Context, text, model string, vector []float32) {
	m.Called(ctx, text, model, vector)
}

func (m *MockCache) GetChatCompletion(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int) (*ChatCompletion, bool) {
	args := m.Called(ctx, messages, model, temperature, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*ChatCompletion), args.Bool(1)
}

func (m *MockCache) SetChatCompletion(ctx context.Context, messages []ChatMessage, model string, temperature float64, maxTokens int, resp *ChatCompletion) {
	m.Called(ctx, messages, model, temperature, maxTokens, resp)
}

func (m *MockCache) GetAnswer(ctx context.Context, question string, documentIDs []string, userID string) (*Answer, bool) {
	args := m.Called(ctx, question, documentIDs, userID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*Answer), args.Bool(1)
}

func (m *MockCache) SetAnswer(ctx context.Context, question string, documentIDs []string, userID string, temperature float64, answer *Answer) {
	m.Called(ctx, question, documentIDs, userID, temperature, answer)
}

func (m *MockCache) InvalidateAnswers(ctx context.Context, userID, documentID string) {
	m.Called(ctx, userID, documentID)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
