package tts

import (
	"log/slog"
	"time"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Voice configuration
	VoiceID string
	ModelID string

	// Emotion controls applied to synthesis (e.g. "positivity:highest").
	Emotions []string

	// Audio output
	OutputFormat AudioFormat

	// Timeouts
	DialTimeout   time.Duration
	StreamTimeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithVoice sets the voice ID.
func WithVoice(voiceID string) Option {
	return func(c *Config) {
		c.VoiceID = voiceID
	}
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(c *Config) {
		c.ModelID = modelID
	}
}

// WithEmotions sets the emotion controls for synthesis.
func WithEmotions(emotions ...string) Option {
	return func(c *Config) {
		c.Emotions = emotions
	}
}

// WithOutputFormat sets the audio output format.
func WithOutputFormat(format AudioFormat) Option {
	return func(c *Config) {
		c.OutputFormat = format
	}
}

// WithDialTimeout sets the WebSocket handshake timeout.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.DialTimeout = timeout
	}
}

// WithStreamTimeout sets the per-stream read timeout.
func WithStreamTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.StreamTimeout = timeout
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		ModelID: "sonic-2",
		OutputFormat: AudioFormat{
			Container:  "raw",
			Encoding:   EncodingPCMS16LE,
			SampleRate: 44100,
			Channels:   1,
		},
		Emotions:      []string{"positivity:highest"},
		DialTimeout:   10 * time.Second,
		StreamTimeout: 60 * time.Second,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.VoiceID == "" {
		return ErrNoVoiceID
	}
	return nil
}
