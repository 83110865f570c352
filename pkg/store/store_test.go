package store

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/voxrelay/voxrelay/pkg/protocol"
)

func TestTranscriptAppendOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entries := []protocol.TranscriptEntry{
		{Query: "first", Response: "one"},
		{Query: "second", Response: "two"},
		{Query: "third", Response: "three"},
	}
	for _, e := range entries {
		if err := s.AppendTranscript(ctx, "s1", e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.FetchTranscript(ctx, "s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestFetchTranscriptUnknownSession(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.FetchTranscript(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty transcript, got %d entries", len(got))
	}
}

func TestMergeContext(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.MergeContext(ctx, "s1", map[string]string{"summary": "greeting"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.MergeContext(ctx, "s1", map[string]string{"summary": "weather", "topic": "rain"}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	got, err := s.GetContext(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["summary"] != "weather" {
		t.Errorf("summary = %q, want overwrite to %q", got["summary"], "weather")
	}
	if got["topic"] != "rain" {
		t.Errorf("topic = %q, want %q", got["topic"], "rain")
	}
}

func TestMergeContextEmptyIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.MergeContext(ctx, "s1", map[string]string{"summary": "greeting"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	before, _ := s.GetContext(ctx, "s1")

	if err := s.MergeContext(ctx, "s1", map[string]string{}); err != nil {
		t.Fatalf("empty merge: %v", err)
	}
	after, _ := s.GetContext(ctx, "s1")

	if len(before) != len(after) {
		t.Fatalf("context size changed: %d -> %d", len(before), len(after))
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("key %q changed: %q -> %q", k, v, after[k])
		}
	}
}

func TestDeleteSession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.AppendTranscript(ctx, "doomed", protocol.TranscriptEntry{Query: "q", Response: "r"})
	s.MergeContext(ctx, "doomed", map[string]string{"summary": "x"})
	s.AppendTranscript(ctx, "survivor", protocol.TranscriptEntry{Query: "q2", Response: "r2"})

	if err := s.DeleteSession(ctx, "doomed"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	transcript, _ := s.FetchTranscript(ctx, "doomed")
	if len(transcript) != 0 {
		t.Errorf("expected empty transcript after delete, got %d entries", len(transcript))
	}
	context_, _ := s.GetContext(ctx, "doomed")
	if len(context_) != 0 {
		t.Errorf("expected empty context after delete, got %v", context_)
	}
	ids, _ := s.ListSessions(ctx)
	for _, id := range ids {
		if id == "doomed" {
			t.Error("deleted session still listed")
		}
	}

	// Deleting an absent session is a no-op.
	if err := s.DeleteSession(ctx, "doomed"); err != nil {
		t.Errorf("repeat delete: %v", err)
	}

	transcript, _ = s.FetchTranscript(ctx, "survivor")
	if len(transcript) != 1 {
		t.Errorf("unrelated session lost its transcript")
	}
}

func TestListSessions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.AppendTranscript(ctx, "a", protocol.TranscriptEntry{Query: "q", Response: "r"})
	s.MergeContext(ctx, "b", map[string]string{"summary": "x"})

	ids, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("sessions = %v, want [a b]", ids)
	}
}

func TestScripts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.FetchScript(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.AddScript(ctx, "support", "Be helpful."); err != nil {
		t.Fatalf("add script: %v", err)
	}
	content, err := s.FetchScript(ctx, "support")
	if err != nil {
		t.Fatalf("fetch script: %v", err)
	}
	if content != "Be helpful." {
		t.Errorf("content = %q", content)
	}

	names, err := s.ListScripts(ctx)
	if err != nil {
		t.Fatalf("list scripts: %v", err)
	}
	if len(names) != 1 || names[0] != "support" {
		t.Errorf("names = %v", names)
	}
}
