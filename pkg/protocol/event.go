// Package protocol defines the WebSocket event types exchanged between
// the voxrelay server and its frontend clients.
//
// Events travel as flat JSON objects discriminated by the "type" field.
// Binary audio follows tts_chunk / tts_chunk_final events as a separate
// binary WebSocket frame.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the type of a WebSocket event.
type EventType string

const (
	// Client → Server events
	TypeNewSession     EventType = "new_session"     // Mint a fresh session ID
	TypeSetTTS         EventType = "set_tts"         // Enable/disable speech synthesis
	TypeGetSessions    EventType = "get_sessions"    // List known session IDs
	TypeGetTranscripts EventType = "get_transcripts" // Fetch a session's transcript
	TypeKillStreaming  EventType = "kill_streaming"  // Cancel an in-flight TTS stream
	TypeDeleteSession  EventType = "delete_session"  // Purge a session's persisted state
	TypeText           EventType = "text"            // Text query
	TypeAudio          EventType = "audio"           // Base64 audio fragment

	// Server → Client events
	TypeUUID           EventType = "uuid"            // Announce a session ID
	TypeSessions       EventType = "sessions"        // Session ID list
	TypeTranscripts    EventType = "transcripts"     // Transcript + session ID
	TypeSessionDeleted EventType = "session_deleted" // Delete confirmation
	TypeTranscriptItem EventType = "transcript_item" // Reply to a query
	TypeTTSStart       EventType = "tts_start"       // Synthesis started
	TypeTTSChunk       EventType = "tts_chunk"       // Merged chunk follows as binary
	TypeTTSChunkFinal  EventType = "tts_chunk_final" // Last partial chunk follows as binary
	TypeTTSStopped     EventType = "tts_stopped"     // Stream cancelled by client
	TypeTTSComplete    EventType = "tts_complete"    // Stream finished
	TypeError          EventType = "error"           // Error report
)

// Event is an inbound client event. Fields beyond Type are populated
// depending on the event type; unused fields stay zero.
type Event struct {
	Type EventType `json:"type"`

	// UUID is the session ID the event applies to (set_tts,
	// kill_streaming, text, audio).
	UUID string `json:"uuid,omitempty"`

	// ID is the target session for get_transcripts / delete_session.
	ID string `json:"id,omitempty"`

	// Value is the flag for set_tts.
	Value *bool `json:"value,omitempty"`

	// Text is the query for text events.
	Text string `json:"text,omitempty"`

	// Audio is a base64 fragment for audio events, optionally carrying
	// a data-URI prefix.
	Audio string `json:"audio,omitempty"`

	// Final marks the last fragment of an audio clip.
	Final bool `json:"final,omitempty"`
}

// SessionID returns the session the event targets, preferring UUID
// over ID since the two fields are used by disjoint event types.
func (e *Event) SessionID() string {
	if e.UUID != "" {
		return e.UUID
	}
	return e.ID
}

// ParseEvent decodes an inbound event from raw JSON.
func ParseEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	return &ev, nil
}

// TranscriptEntry is one query/response exchange. Entries are immutable
// once persisted; a session's transcript is ordered by arrival.
type TranscriptEntry struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}
