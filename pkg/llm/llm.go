// Package llm provides the language-generation backend for voxrelay.
//
// A Generator turns a user query (text and/or a recorded audio clip)
// plus accumulated conversation context into a structured reply. The
// Gemini implementation is the production backend; Mock supports tests.
//
// Generation failure is absorbed by the implementation: callers always
// receive a usable Reply. A failed backend call yields the deterministic
// fallback response with the session's prior context preserved, so the
// conversation keeps flowing even when the backend is down.
package llm

import (
	"context"
	"errors"
)

// FallbackResponse is returned as the reply text when the generation
// backend fails. It is deterministic so downstream persistence and
// synthesis behave identically to a successful call.
const FallbackResponse = "Please try again later"

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the backend API key is missing.
	ErrNoAPIKey = errors.New("llm: API key required")
)

// Reply is the structured result of one generation call.
type Reply struct {
	// Query is the user's query as the model understood it, verbatim.
	// Empty on fallback or when the model could not transcribe audio.
	Query string `json:"query"`

	// Response is the reply text, fed to both transcript and TTS.
	Response string `json:"response"`

	// Context is a summary of this exchange only; the caller accumulates
	// it into the session's rolling context.
	Context string `json:"context"`
}

// Generator produces a Reply for a session's query.
type Generator interface {
	// Generate calls the backend with the session's accumulated context.
	// prompt may be empty when audioPath is set, and vice versa.
	// Backend failure does not surface as an error: the returned Reply
	// carries FallbackResponse and the prior context unchanged.
	Generate(ctx context.Context, sessionID, prompt, audioPath string) (*Reply, error)

	// Close releases backend resources.
	Close() error
}
