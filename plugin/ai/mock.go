package ai

import (
	"context"
	"fmt"
	"sync"
)

// MockLLMService is a deterministic LLMService for local development and tests.
// Unless a reply function is set it answers by quoting the last user message.
type MockLLMService struct {
	mu    sync.Mutex
	calls [][]Message

	// ReplyFunc overrides the default reply.
	ReplyFunc func(messages []Message) (string, error)
}

// NewMockLLMService creates a new MockLLMService.
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{}
}

// Chat records the request and returns the mock reply.
func (m *MockLLMService) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, append([]Message(nil), messages...))
	replyFunc := m.ReplyFunc
	m.mu.Unlock()

	if replyFunc != nil {
		return replyFunc(messages)
	}

	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return fmt.Sprintf("You said %q. What is one small step you can take next?", last), nil
}

// Calls returns a copy of every message list received so far.
func (m *MockLLMService) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.calls...)
}

var _ LLMService = (*MockLLMService)(nil)
