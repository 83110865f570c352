package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/voxrelay/voxrelay/pkg/llm"
	"github.com/voxrelay/voxrelay/pkg/protocol"
	"github.com/voxrelay/voxrelay/pkg/store"
	"github.com/voxrelay/voxrelay/pkg/tts"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	s := New(Options{
		Store:     st,
		Generator: llm.NewMock(),
		Speech: func() (tts.Provider, error) {
			return tts.NewMock(0, 0), nil
		},
		MediaDir: t.TempDir(),
	})
	return s, st
}

// Overlapping utterances on a shared Cartesia handle reject with
// ErrStreamBusy, so every chat connection must get its own provider.
func TestChatConnectionsGetOwnProvider(t *testing.T) {
	created := 0
	s := New(Options{
		Store:     store.NewMemoryStore(),
		Generator: llm.NewMock(),
		Speech: func() (tts.Provider, error) {
			created++
			return tts.NewMock(0, 0), nil
		},
		MediaDir: t.TempDir(),
	})

	_, first, err := s.newChatConnection()
	if err != nil {
		t.Fatalf("newChatConnection: %v", err)
	}
	_, second, err := s.newChatConnection()
	if err != nil {
		t.Fatalf("newChatConnection: %v", err)
	}

	if created != 2 {
		t.Errorf("provider factory called %d times for 2 connections, want 2", created)
	}
	if first == second {
		t.Error("two connections share one speech provider")
	}
}

func TestChatConnectionProviderError(t *testing.T) {
	s := New(Options{
		Store:     store.NewMemoryStore(),
		Generator: llm.NewMock(),
		Speech: func() (tts.Provider, error) {
			return nil, errors.New("voice not configured")
		},
		MediaDir: t.TempDir(),
	})

	if _, _, err := s.newChatConnection(); err == nil {
		t.Fatal("expected provider construction error to surface")
	}
}

// Only kill_streaming may overtake queued events; set_tts applied out
// of order could mute a query that arrived before the flag flip.
func TestQueueBypassOnlyForCancellation(t *testing.T) {
	bypassing := []protocol.EventType{protocol.TypeKillStreaming}
	queued := []protocol.EventType{
		protocol.TypeSetTTS, protocol.TypeText, protocol.TypeAudio,
		protocol.TypeNewSession, protocol.TypeGetSessions,
		protocol.TypeGetTranscripts, protocol.TypeDeleteSession,
	}

	for _, et := range bypassing {
		if !bypassesQueue(et) {
			t.Errorf("%s should bypass the queue", et)
		}
	}
	for _, et := range queued {
		if bypassesQueue(et) {
			t.Errorf("%s must be processed in arrival order", et)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	if err := st.AppendTranscript(ctx, "sess-1",
		protocol.TranscriptEntry{Query: "q", Response: "r"}); err != nil {
		t.Fatalf("AppendTranscript: %v", err)
	}

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/sessions", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Sessions []string `json:"sessions"`
		Count    int      `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || len(body.Sessions) != 1 || body.Sessions[0] != "sess-1" {
		t.Errorf("body = %+v, want one sess-1 entry", body)
	}
}

func TestTranscriptsEndpoint(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	if err := st.AppendTranscript(ctx, "sess-1",
		protocol.TranscriptEntry{Query: "hi", Response: "hello"}); err != nil {
		t.Fatalf("AppendTranscript: %v", err)
	}
	if err := st.MergeContext(ctx, "sess-1", map[string]string{"summary": "greeting"}); err != nil {
		t.Fatalf("MergeContext: %v", err)
	}

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/sessions/sess-1/transcripts", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		SessionID   string                     `json:"session_id"`
		Transcripts []protocol.TranscriptEntry `json:"transcripts"`
		Context     map[string]string          `json:"context"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Transcripts) != 1 || body.Transcripts[0].Response != "hello" {
		t.Errorf("transcripts = %+v", body.Transcripts)
	}
	if body.Context["summary"] != "greeting" {
		t.Errorf("context = %+v", body.Context)
	}
}

func TestDeleteSessionEndpoint(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	if err := st.AppendTranscript(ctx, "doomed",
		protocol.TranscriptEntry{Query: "q", Response: "r"}); err != nil {
		t.Fatalf("AppendTranscript: %v", err)
	}

	resp, err := s.app.Test(httptest.NewRequest("DELETE", "/api/sessions/doomed", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	transcript, err := st.FetchTranscript(ctx, "doomed")
	if err != nil {
		t.Fatalf("FetchTranscript: %v", err)
	}
	if len(transcript) != 0 {
		t.Errorf("transcript survives deletion: %v", transcript)
	}
}

func TestScriptEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	// Missing script is a 404.
	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/scripts/onboarding", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	// Store one.
	payload := bytes.NewBufferString(`{"content": "You are a friendly onboarding agent."}`)
	req := httptest.NewRequest("POST", "/api/scripts/onboarding", payload)
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Read it back.
	resp, err = s.app.Test(httptest.NewRequest("GET", "/api/scripts/onboarding", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Content != "You are a friendly onboarding agent." {
		t.Errorf("content = %q", body.Content)
	}

	// It shows up in the listing.
	resp, err = s.app.Test(httptest.NewRequest("GET", "/api/scripts", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	var listing struct {
		Scripts []string `json:"scripts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Scripts) != 1 || listing.Scripts[0] != "onboarding" {
		t.Errorf("scripts = %v, want [onboarding]", listing.Scripts)
	}

	// Empty content is rejected.
	req = httptest.NewRequest("POST", "/api/scripts/empty", bytes.NewBufferString(`{"content": ""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAddScriptInvalidBody(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/scripts/bad", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
