package llm

import (
	"context"
	"sync"
)

// Mock implements Generator for testing.
// Behavior is customized via the GenerateFunc field.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	// If nil, a canned reply echoing the prompt is returned.
	GenerateFunc func(ctx context.Context, sessionID, prompt, audioPath string) (*Reply, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Generate invocation for verification.
type MockCall struct {
	SessionID string
	Prompt    string
	AudioPath string
}

// NewMock creates a mock generator with a canned echo reply.
func NewMock() *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, sessionID, prompt, audioPath string) (*Reply, error) {
			return &Reply{
				Query:    prompt,
				Response: "echo: " + prompt,
				Context:  "",
			}, nil
		},
	}
}

// WithReply returns a mock that always returns the given reply.
func WithReply(reply Reply) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, sessionID, prompt, audioPath string) (*Reply, error) {
			r := reply
			return &r, nil
		},
	}
}

// Generate calls GenerateFunc and records the call.
func (m *Mock) Generate(ctx context.Context, sessionID, prompt, audioPath string) (*Reply, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{SessionID: sessionID, Prompt: prompt, AudioPath: audioPath})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, sessionID, prompt, audioPath)
	}
	return &Reply{Response: FallbackResponse}, nil
}

// Close implements Generator.
func (m *Mock) Close() error {
	return nil
}

// Calls returns all recorded invocations.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// Verify Mock implements Generator at compile time.
var _ Generator = (*Mock)(nil)
