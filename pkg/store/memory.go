package store

import (
	"context"
	"sync"

	"github.com/voxrelay/voxrelay/pkg/protocol"
)

// MemoryStore implements Store with process-local maps. Used for tests
// and for running the relay without a Redis backend; conversations are
// lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string][]protocol.TranscriptEntry
	contexts    map[string]map[string]string
	scripts     map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcripts: make(map[string][]protocol.TranscriptEntry),
		contexts:    make(map[string]map[string]string),
		scripts:     make(map[string]string),
	}
}

// AppendTranscript implements Store.
func (s *MemoryStore) AppendTranscript(ctx context.Context, sessionID string, entry protocol.TranscriptEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[sessionID] = append(s.transcripts[sessionID], entry)
	return nil
}

// FetchTranscript implements Store.
func (s *MemoryStore) FetchTranscript(ctx context.Context, sessionID string) ([]protocol.TranscriptEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]protocol.TranscriptEntry, len(s.transcripts[sessionID]))
	copy(entries, s.transcripts[sessionID])
	return entries, nil
}

// ListSessions implements Store.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []string{}
	seen := map[string]bool{}
	for id := range s.transcripts {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range s.contexts {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// MergeContext implements Store.
func (s *MemoryStore) MergeContext(ctx context.Context, sessionID string, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.contexts[sessionID]
	if current == nil {
		current = make(map[string]string)
		s.contexts[sessionID] = current
	}
	for k, v := range updates {
		current[k] = v
	}
	return nil
}

// GetContext implements Store.
func (s *MemoryStore) GetContext(ctx context.Context, sessionID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]string, len(s.contexts[sessionID]))
	for k, v := range s.contexts[sessionID] {
		result[k] = v
	}
	return result, nil
}

// DeleteSession implements Store.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, sessionID)
	delete(s.contexts, sessionID)
	return nil
}

// AddScript implements Store.
func (s *MemoryStore) AddScript(ctx context.Context, name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[name] = content
	return nil
}

// FetchScript implements Store.
func (s *MemoryStore) FetchScript(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.scripts[name]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

// ListScripts implements Store.
func (s *MemoryStore) ListScripts(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := []string{}
	for name := range s.scripts {
		names = append(names, name)
	}
	return names, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
