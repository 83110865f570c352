package relay

import (
	"fmt"
	"sync"
)

// Transport delivers outbound events to the frontend. Implementations
// wrap a live WebSocket connection; MockTransport supports tests.
//
// A Transport error is treated as fatal to the connection (the peer is
// gone); all sends for one connection happen from its control flow, in
// emission order.
type Transport interface {
	// SendJSON encodes v as JSON and sends it as a text frame.
	SendJSON(v any) error

	// SendBytes sends raw audio as a binary frame.
	SendBytes(b []byte) error
}

// MockTransport implements Transport by recording everything sent.
type MockTransport struct {
	mu sync.Mutex

	// JSONErr / BytesErr, if set, are returned by the send methods to
	// simulate a dead peer.
	JSONErr  error
	BytesErr error

	sent []SentFrame
}

// SentFrame is one recorded transport emission.
type SentFrame struct {
	// JSON holds the event value for SendJSON frames; nil for binary.
	JSON any

	// Bytes holds the payload for SendBytes frames; nil for JSON.
	Bytes []byte
}

// NewMockTransport creates an empty recording transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// SendJSON implements Transport.
func (t *MockTransport) SendJSON(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.JSONErr != nil {
		return t.JSONErr
	}
	t.sent = append(t.sent, SentFrame{JSON: v})
	return nil
}

// SendBytes implements Transport.
func (t *MockTransport) SendBytes(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.BytesErr != nil {
		return t.BytesErr
	}
	payload := make([]byte, len(b))
	copy(payload, b)
	t.sent = append(t.sent, SentFrame{Bytes: payload})
	return nil
}

// Sent returns all recorded frames in emission order.
func (t *MockTransport) Sent() []SentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]SentFrame, len(t.sent))
	copy(result, t.sent)
	return result
}

// Reset clears recorded frames.
func (t *MockTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

// String renders the recorded frames for test failure messages.
func (t *MockTransport) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := ""
	for i, f := range t.sent {
		if f.JSON != nil {
			s += fmt.Sprintf("%d: %+v\n", i, f.JSON)
		} else {
			s += fmt.Sprintf("%d: binary[%d]\n", i, len(f.Bytes))
		}
	}
	return s
}

// Verify MockTransport implements Transport at compile time.
var _ Transport = (*MockTransport)(nil)
