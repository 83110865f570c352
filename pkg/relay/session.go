package relay

import "sync"

// sessionState is the per-session working state of one connection.
// It is process-local scratch, not the durable record (which lives in
// the store).
type sessionState struct {
	// seq counts inbound text/audio events, used for artifact naming.
	seq int

	// ttsEnabled gates speech synthesis for the session.
	ttsEnabled bool

	// cancel requests termination of an in-flight TTS stream.
	cancel bool
}

// sessionTable tracks per-session state for one connection, keyed by
// session ID. Sessions are created implicitly on first reference with
// their counter at zero and TTS enabled.
//
// Most mutations come from the connection's own control flow; the
// mutex exists because cancellation and TTS flags may be flipped by
// the transport read loop while a stream is in flight.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*sessionState

	// activeStream is the session with an in-flight TTS stream, empty
	// when idle. Cancellation requests for any other session are inert:
	// a kill that lands after its stream completed must not poison the
	// next unrelated synthesis call.
	activeStream string
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*sessionState)}
}

// get returns the state for id, creating it on first reference.
// Existing sessions keep their counter: re-registering never resets it.
func (t *sessionTable) get(id string) *sessionState {
	s, ok := t.sessions[id]
	if !ok {
		s = &sessionState{ttsEnabled: true}
		t.sessions[id] = s
	}
	return s
}

// register ensures id exists with a zeroed counter if new.
func (t *sessionTable) register(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(id)
}

// nextSeq increments and returns the session's event counter.
func (t *sessionTable) nextSeq(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(id)
	s.seq++
	return s.seq
}

// setTTS sets the synthesis flag for the session.
func (t *sessionTable) setTTS(id string, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(id).ttsEnabled = enabled
}

// ttsEnabled reports whether synthesis is enabled for the session.
func (t *sessionTable) ttsEnabled(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(id).ttsEnabled
}

// requestCancel flags the session's in-flight stream for termination.
// Returns false (inert) when the session has no stream in flight.
func (t *sessionTable) requestCancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.activeStream != id {
		return false
	}
	t.get(id).cancel = true
	return true
}

// consumeCancel reports and clears the session's cancel flag.
func (t *sessionTable) consumeCancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.get(id)
	cancelled := s.cancel
	s.cancel = false
	return cancelled
}

// beginStream marks id's stream as in flight.
func (t *sessionTable) beginStream(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeStream = id
}

// endStream clears the in-flight marker and any unconsumed cancel flag
// for the session; a cancel that arrives after this point targets
// nothing and must stay inert.
func (t *sessionTable) endStream(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeStream = ""
	t.get(id).cancel = false
}

// drop removes the session's in-memory state.
func (t *sessionTable) drop(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// reset discards all session state.
func (t *sessionTable) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = make(map[string]*sessionState)
}
