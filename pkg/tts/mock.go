package tts

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// StreamFunc is called when Stream is invoked.
	// If nil, a fixed-frame stream is returned.
	StreamFunc func(ctx context.Context, text string) (AudioStream, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
}

// NewMock creates a mock provider that streams frameCount frames of
// frameSize silent bytes per Stream call.
func NewMock(frameCount, frameSize int) *Mock {
	return &Mock{
		StreamFunc: func(ctx context.Context, text string) (AudioStream, error) {
			frames := make([][]byte, frameCount)
			for i := range frames {
				frames[i] = make([]byte, frameSize)
			}
			return NewMockStream(frames...), nil
		},
	}
}

// WithStreamError returns a mock whose streams fail mid-way: goodFrames
// frames are produced, then err is returned from Read.
func WithStreamError(goodFrames, frameSize int, err error) *Mock {
	return &Mock{
		StreamFunc: func(ctx context.Context, text string) (AudioStream, error) {
			frames := make([][]byte, goodFrames)
			for i := range frames {
				frames[i] = make([]byte, frameSize)
			}
			s := NewMockStream(frames...)
			s.ReadErr = err
			return s, nil
		},
	}
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, text string) (AudioStream, error) {
	m.recordCall("Stream", text)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, text)
	}
	return NewMockStream(), nil
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// MockStream implements AudioStream over a fixed frame list.
type MockStream struct {
	// Frames are returned one per Read, in order.
	Frames [][]byte

	// ReadErr, if set, is returned by Read after Frames are exhausted
	// instead of the normal end-of-stream nil.
	ReadErr error

	// StreamFormat is returned by Format.
	StreamFormat AudioFormat

	pos      int
	closed   bool
	CloseCnt int
}

// NewMockStream creates a stream producing the given frames.
func NewMockStream(frames ...[]byte) *MockStream {
	return &MockStream{
		Frames: frames,
		StreamFormat: AudioFormat{
			Container:  "raw",
			Encoding:   EncodingPCMS16LE,
			SampleRate: 44100,
			Channels:   1,
		},
	}
}

// Read implements AudioStream.
func (s *MockStream) Read() ([]byte, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.pos < len(s.Frames) {
		frame := s.Frames[s.pos]
		s.pos++
		return frame, nil
	}
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return nil, nil
}

// Close implements AudioStream.
func (s *MockStream) Close() error {
	s.closed = true
	s.CloseCnt++
	return nil
}

// Format implements AudioStream.
func (s *MockStream) Format() AudioFormat {
	return s.StreamFormat
}

// Remaining returns the number of unread frames. Used by tests to
// verify abandoned streams are not drained.
func (s *MockStream) Remaining() int {
	return len(s.Frames) - s.pos
}

// Verify interfaces at compile time.
var (
	_ Provider    = (*Mock)(nil)
	_ AudioStream = (*MockStream)(nil)
)
