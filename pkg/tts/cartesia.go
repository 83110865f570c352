package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	cartesiaWSBaseURL = "wss://api.cartesia.ai/tts/websocket"
	cartesiaVersion   = "2025-04-16"
	providerCartesia  = "cartesia"
)

// cartesiaVoiceSpec selects the synthesis voice.
type cartesiaVoiceSpec struct {
	Mode     string                    `json:"mode"`
	ID       string                    `json:"id"`
	Controls *cartesiaResponseControls `json:"__experimental_controls,omitempty"`
}

// cartesiaResponseControls carries experimental voice controls.
type cartesiaResponseControls struct {
	Emotion []string `json:"emotion,omitempty"`
}

// cartesiaOutputFormat describes the requested audio output.
type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// cartesiaStreamingRequest is one synthesis request on the socket.
type cartesiaStreamingRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoiceSpec    `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
	ContextID    string               `json:"context_id"`
	Continue     bool                 `json:"continue"`
}

// cartesiaWSResponse is one message from the socket.
type cartesiaWSResponse struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	ContextID string `json:"context_id,omitempty"`
	Done      bool   `json:"done,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Cartesia implements Provider over Cartesia's streaming WebSocket API.
//
// The WebSocket handle is renewable: any stream-level failure (or an
// abandoned stream) drops the connection, and the next Stream call
// dials a fresh one.
type Cartesia struct {
	config *Config
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	streaming bool
}

// NewCartesia creates a Cartesia streaming TTS provider.
// The WebSocket is dialed lazily on the first Stream call.
func NewCartesia(opts ...Option) (*Cartesia, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Cartesia{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.cartesia"),
	}, nil
}

// Stream implements Provider. It sends one synthesis request and
// returns a stream of raw audio frames for it.
func (c *Cartesia) Stream(ctx context.Context, text string) (AudioStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming {
		return nil, WrapError(providerCartesia, ErrStreamBusy)
	}

	if err := c.ensureConnLocked(ctx); err != nil {
		return nil, err
	}

	req := cartesiaStreamingRequest{
		ModelID:    c.config.ModelID,
		Transcript: text,
		Voice: cartesiaVoiceSpec{
			Mode: "id",
			ID:   c.config.VoiceID,
		},
		OutputFormat: cartesiaOutputFormat{
			Container:  c.config.OutputFormat.Container,
			Encoding:   string(c.config.OutputFormat.Encoding),
			SampleRate: c.config.OutputFormat.SampleRate,
		},
		ContextID: "ctx_" + uuid.NewString(),
		Continue:  false,
	}
	if len(c.config.Emotions) > 0 {
		req.Voice.Controls = &cartesiaResponseControls{Emotion: c.config.Emotions}
	}

	if err := c.conn.WriteJSON(req); err != nil {
		c.dropConnLocked()
		return nil, WrapError(providerCartesia, fmt.Errorf("send request: %w", err))
	}

	c.streaming = true
	return &cartesiaStream{provider: c, contextID: req.ContextID}, nil
}

// Health implements Provider by dialing the backend.
func (c *Cartesia) Health(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	deadline := time.Now().Add(c.config.DialTimeout)
	if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		c.dropConnLocked()
		return WrapError(providerCartesia, err)
	}
	return nil
}

// Close implements Provider.
func (c *Cartesia) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
	c.dropConnLocked()
	return nil
}

// ensureConnLocked dials the WebSocket if no live connection exists.
func (c *Cartesia) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	base := c.config.BaseURL
	if base == "" {
		base = cartesiaWSBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return WrapError(providerCartesia, fmt.Errorf("parse URL: %w", err))
	}
	q := u.Query()
	q.Set("api_key", c.config.APIKey)
	q.Set("cartesia_version", cartesiaVersion)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return WrapError(providerCartesia,
				fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err))
		}
		return WrapError(providerCartesia, fmt.Errorf("websocket dial failed: %w", err))
	}

	c.conn = conn
	c.logger.Info("websocket connected", "voice", c.config.VoiceID, "model", c.config.ModelID)
	return nil
}

// dropConnLocked discards the connection so the next Stream redials.
func (c *Cartesia) dropConnLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.streaming = false
}

// cartesiaStream reads frames for one synthesis request.
type cartesiaStream struct {
	provider  *Cartesia
	contextID string
	done      bool
	closed    bool
}

// Read implements AudioStream.
func (s *cartesiaStream) Read() ([]byte, error) {
	if s.closed {
		return nil, WrapError(providerCartesia, ErrStreamClosed)
	}
	if s.done {
		return nil, nil
	}

	c := s.provider
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.StreamTimeout))

		var msg cartesiaWSResponse
		if err := c.conn.ReadJSON(&msg); err != nil {
			s.fail()
			return nil, WrapError(providerCartesia, fmt.Errorf("read frame: %w", err))
		}

		// Frames for other contexts can linger after an abandoned
		// stream on a reused connection; skip them.
		if msg.ContextID != "" && msg.ContextID != s.contextID {
			continue
		}

		switch msg.Type {
		case "chunk":
			frame, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				s.fail()
				return nil, WrapError(providerCartesia, fmt.Errorf("decode frame: %w", err))
			}
			if msg.Done {
				s.finish()
			}
			return frame, nil

		case "done":
			s.finish()
			return nil, nil

		case "error":
			s.fail()
			return nil, &BackendError{Provider: providerCartesia, Message: msg.Error}

		default:
			// Timestamps and other metadata messages are ignored.
		}
	}
}

// Close implements AudioStream. Closing before exhaustion abandons the
// stream and forces a redial on the next Stream call.
func (s *cartesiaStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	c := s.provider
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.done {
		c.streaming = false
		return nil
	}
	c.dropConnLocked()
	return nil
}

// Format implements AudioStream.
func (s *cartesiaStream) Format() AudioFormat {
	return s.provider.config.OutputFormat
}

// finish marks normal exhaustion; the connection stays reusable.
func (s *cartesiaStream) finish() {
	s.done = true
	c := s.provider
	c.mu.Lock()
	c.streaming = false
	c.mu.Unlock()
}

// fail marks a stream-level failure and poisons the connection.
func (s *cartesiaStream) fail() {
	s.done = true
	c := s.provider
	c.mu.Lock()
	c.dropConnLocked()
	c.mu.Unlock()
}

// Verify Cartesia implements Provider at compile time.
var _ Provider = (*Cartesia)(nil)
