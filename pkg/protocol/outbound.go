package protocol

// Outbound event payloads. Each constructor returns a value ready for
// JSON encoding onto the transport.

// UUIDEvent announces a session ID to the client.
type UUIDEvent struct {
	Type EventType `json:"type"`
	UUID string    `json:"uuid"`
}

// NewUUIDEvent creates a uuid event.
func NewUUIDEvent(id string) UUIDEvent {
	return UUIDEvent{Type: TypeUUID, UUID: id}
}

// SessionsEvent carries the known session IDs.
type SessionsEvent struct {
	Type     EventType `json:"type"`
	Sessions []string  `json:"sessions"`
}

// NewSessionsEvent creates a sessions event.
func NewSessionsEvent(ids []string) SessionsEvent {
	return SessionsEvent{Type: TypeSessions, Sessions: ids}
}

// TranscriptsEvent carries a session's full transcript.
type TranscriptsEvent struct {
	Type        EventType         `json:"type"`
	Transcripts []TranscriptEntry `json:"transcripts"`
	SessionID   string            `json:"session_id"`
}

// NewTranscriptsEvent creates a transcripts event.
func NewTranscriptsEvent(id string, entries []TranscriptEntry) TranscriptsEvent {
	return TranscriptsEvent{Type: TypeTranscripts, Transcripts: entries, SessionID: id}
}

// SessionDeletedEvent confirms a session purge.
type SessionDeletedEvent struct {
	Type EventType `json:"type"`
	ID   string    `json:"id"`
}

// NewSessionDeletedEvent creates a session_deleted event.
func NewSessionDeletedEvent(id string) SessionDeletedEvent {
	return SessionDeletedEvent{Type: TypeSessionDeleted, ID: id}
}

// TranscriptItemEvent carries the reply to a query. Text queries get
// the response string only; audio queries get the full structured item.
type TranscriptItemEvent struct {
	Type           EventType        `json:"type"`
	Response       string           `json:"response,omitempty"`
	TranscriptItem *TranscriptEntry `json:"transcript_item,omitempty"`
	Context        string           `json:"context"`
}

// NewResponseEvent creates a transcript_item event for a text query.
func NewResponseEvent(response, context string) TranscriptItemEvent {
	return TranscriptItemEvent{Type: TypeTranscriptItem, Response: response, Context: context}
}

// NewTranscriptItemEvent creates a transcript_item event for an audio query.
func NewTranscriptItemEvent(entry TranscriptEntry, context string) TranscriptItemEvent {
	return TranscriptItemEvent{Type: TypeTranscriptItem, TranscriptItem: &entry, Context: context}
}

// NoticeEvent is a typed notification with an optional human-readable message.
// Used for tts_start, tts_stopped, tts_complete, and error events, plus the
// bare tts_chunk / tts_chunk_final markers that precede binary frames.
type NoticeEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
}

// NewNoticeEvent creates a notice of the given type.
func NewNoticeEvent(t EventType, message string) NoticeEvent {
	return NoticeEvent{Type: t, Message: message}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(message string) NoticeEvent {
	return NoticeEvent{Type: TypeError, Message: message}
}
