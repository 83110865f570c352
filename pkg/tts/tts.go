// Package tts provides streaming text-to-speech for voxrelay.
//
// The production backend is Cartesia's WebSocket streaming API; Mock
// supports tests. A Provider's streaming handle is renewable: after a
// stream-level failure the provider discards the underlying connection
// and redials on the next Stream call, so one bad utterance never
// poisons the session.
//
// Example usage:
//
//	provider, _ := tts.NewCartesia(
//	    tts.WithAPIKey(os.Getenv("CARTESIA_API_KEY")),
//	    tts.WithVoice("a0e99841-438c-4a64-b679-ae501e7d6091"),
//	)
//	defer provider.Close()
//
//	stream, _ := provider.Stream(ctx, "Hello world")
//	for {
//	    frame, err := stream.Read()
//	    if frame == nil || err != nil {
//	        break
//	    }
//	    // frame contains raw PCM bytes
//	}
package tts

import (
	"context"
)

// Provider defines the streaming TTS backend interface.
type Provider interface {
	// Stream opens a frame stream synthesizing text.
	// Frames are raw audio bytes in the provider's configured format.
	// At most one stream may be open per provider at a time.
	Stream(ctx context.Context, text string) (AudioStream, error)

	// Health checks backend connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioStream is an ordered sequence of synthesized audio frames.
// Callers read until Read returns nil, then call Close. Abandoning a
// stream early (Close before exhaustion) is allowed; the provider
// recovers its handle on the next Stream call.
type AudioStream interface {
	// Read returns the next audio frame.
	// Returns nil when the stream is complete (not an error).
	Read() ([]byte, error)

	// Close stops the stream and releases resources.
	Close() error

	// Format returns the audio format metadata.
	Format() AudioFormat
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Container is the audio container ("raw" for PCM streams).
	Container string

	// Encoding specifies the sample encoding (e.g. pcm_s16le).
	Encoding Encoding

	// SampleRate in Hz (e.g. 44100, 24000).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int
}

// Encoding represents audio sample encodings.
// These match Cartesia output format options.
type Encoding string

const (
	// EncodingPCMS16LE is 16-bit little-endian PCM.
	EncodingPCMS16LE Encoding = "pcm_s16le"

	// EncodingPCMF32LE is 32-bit float little-endian PCM.
	EncodingPCMF32LE Encoding = "pcm_f32le"

	// EncodingMuLaw is 8-bit mu-law (telephony).
	EncodingMuLaw Encoding = "pcm_mulaw"
)
