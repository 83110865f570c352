// Package store provides session persistence for voxrelay: per-session
// transcript logs, conversation context blobs, and named prompt scripts.
//
// Two backends are provided: Redis for durable deployments and an
// in-memory store for tests and storage-less development. Backend
// errors are surfaced as plain errors; callers treat them as a
// degradation of durability, never as fatal to a live conversation.
package store

import (
	"context"
	"errors"

	"github.com/voxrelay/voxrelay/pkg/protocol"
)

// Common errors for store operations.
var (
	// ErrNotFound is returned when a named script does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Store defines the persistence operations the relay core requires.
// All operations are safe to call repeatedly.
type Store interface {
	// AppendTranscript appends an entry to a session's transcript.
	// The session is created implicitly on first append.
	AppendTranscript(ctx context.Context, sessionID string, entry protocol.TranscriptEntry) error

	// FetchTranscript returns a session's transcript in append order.
	// Unknown sessions yield an empty slice, not an error.
	FetchTranscript(ctx context.Context, sessionID string) ([]protocol.TranscriptEntry, error)

	// ListSessions returns all known session IDs.
	ListSessions(ctx context.Context) ([]string, error)

	// MergeContext merges updates into a session's context blob.
	// Existing keys are overwritten, new keys added; an empty update
	// leaves the context unchanged.
	MergeContext(ctx context.Context, sessionID string, updates map[string]string) error

	// GetContext returns a session's context blob, empty if absent.
	GetContext(ctx context.Context, sessionID string) (map[string]string, error)

	// DeleteSession purges a session's transcript and context.
	// Deleting an absent session is a no-op.
	DeleteSession(ctx context.Context, sessionID string) error

	// AddScript stores a named reusable prompt script.
	AddScript(ctx context.Context, name, content string) error

	// FetchScript returns a named script, or ErrNotFound.
	FetchScript(ctx context.Context, name string) (string, error)

	// ListScripts returns all stored script names.
	ListScripts(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}
