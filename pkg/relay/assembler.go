package relay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Assembler reassembles base64-chunked audio fragments into complete
// clips, one buffer per session. Fragments must arrive in send order;
// the WebSocket transport guarantees per-connection ordering, so no
// sequence numbers are carried on fragments.
//
// Mutated only by the owning connection's control flow.
type Assembler struct {
	dir     string
	buffers map[string]*bytes.Buffer
}

// NewAssembler creates an assembler writing artifacts under dir.
func NewAssembler(dir string) *Assembler {
	return &Assembler{
		dir:     dir,
		buffers: make(map[string]*bytes.Buffer),
	}
}

// Append decodes a base64 fragment and appends it to the session's
// buffer. An optional data-URI prefix ("data:...;base64,") is stripped
// before decoding. Empty payloads are ignored.
func (a *Assembler) Append(sessionID, payload string) error {
	if payload == "" {
		return nil
	}

	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("relay: decode audio fragment: %w", err)
	}

	buf, ok := a.buffers[sessionID]
	if !ok {
		buf = &bytes.Buffer{}
		a.buffers[sessionID] = buf
	}
	buf.Write(decoded)
	return nil
}

// Finalize writes the session's accumulated clip to an artifact named
// from the session ID and sequence number, clears the buffer, and
// returns the artifact path. An empty buffer still yields a valid
// (empty) artifact.
func (a *Assembler) Finalize(sessionID string, seq int) (string, error) {
	if a.dir != "" {
		if err := os.MkdirAll(a.dir, 0755); err != nil {
			return "", fmt.Errorf("relay: create media directory: %w", err)
		}
	}

	path := filepath.Join(a.dir, fmt.Sprintf("%d-%s.mp3", seq, sessionID))

	var data []byte
	if buf, ok := a.buffers[sessionID]; ok {
		data = buf.Bytes()
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("relay: write artifact: %w", err)
	}

	delete(a.buffers, sessionID)
	return path, nil
}

// Pending returns the number of buffered bytes for a session.
func (a *Assembler) Pending(sessionID string) int {
	if buf, ok := a.buffers[sessionID]; ok {
		return buf.Len()
	}
	return 0
}

// Reset discards all buffered fragments.
func (a *Assembler) Reset() {
	a.buffers = make(map[string]*bytes.Buffer)
}
