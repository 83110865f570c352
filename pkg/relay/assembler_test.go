package relay

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestAssemblerConcatenatesFragments(t *testing.T) {
	a := NewAssembler(t.TempDir())

	fragments := []string{b64("hel"), b64("lo "), b64("world")}
	for _, f := range fragments {
		if err := a.Append("sess-1", f); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	path, err := a.Finalize("sess-1", 3)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("artifact = %q, want %q", data, "hello world")
	}
}

func TestAssemblerStripsDataURIPrefix(t *testing.T) {
	a := NewAssembler(t.TempDir())

	if err := a.Append("sess-1", "data:audio/webm;base64,"+b64("clip")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	path, err := a.Finalize("sess-1", 1)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "clip" {
		t.Errorf("artifact = %q, want %q", data, "clip")
	}
}

func TestAssemblerArtifactNaming(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(dir)

	if err := a.Append("abc-123", b64("x")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	path, err := a.Finalize("abc-123", 7)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	want := filepath.Join(dir, "7-abc-123.mp3")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestAssemblerEmptyPayloadIgnored(t *testing.T) {
	a := NewAssembler(t.TempDir())

	if err := a.Append("sess-1", ""); err != nil {
		t.Fatalf("Append(empty): %v", err)
	}
	if got := a.Pending("sess-1"); got != 0 {
		t.Errorf("Pending = %d, want 0", got)
	}
}

func TestAssemblerInvalidBase64(t *testing.T) {
	a := NewAssembler(t.TempDir())

	if err := a.Append("sess-1", b64("good")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := a.Append("sess-1", "!!not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}

	// A rejected fragment leaves the buffer untouched.
	if got := a.Pending("sess-1"); got != len("good") {
		t.Errorf("Pending = %d, want %d", got, len("good"))
	}
}

func TestAssemblerFinalizeEmptyBuffer(t *testing.T) {
	a := NewAssembler(t.TempDir())

	path, err := a.Finalize("sess-1", 1)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("empty buffer artifact has %d bytes, want 0", len(data))
	}
}

func TestAssemblerFinalizeClearsBuffer(t *testing.T) {
	a := NewAssembler(t.TempDir())

	if err := a.Append("sess-1", b64("first")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := a.Finalize("sess-1", 1); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := a.Pending("sess-1"); got != 0 {
		t.Errorf("Pending after finalize = %d, want 0", got)
	}

	// The next clip starts from scratch.
	if err := a.Append("sess-1", b64("second")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	path, err := a.Finalize("sess-1", 2)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("artifact = %q, want %q", data, "second")
	}
}

func TestAssemblerSessionsIsolated(t *testing.T) {
	a := NewAssembler(t.TempDir())

	if err := a.Append("sess-1", b64("one")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := a.Append("sess-2", b64("two")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	path, err := a.Finalize("sess-2", 1)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("artifact = %q, want %q", data, "two")
	}
	if got := a.Pending("sess-1"); got != len("one") {
		t.Errorf("sess-1 Pending = %d, want %d", got, len("one"))
	}
}

func TestAssemblerReset(t *testing.T) {
	a := NewAssembler(t.TempDir())

	if err := a.Append("sess-1", b64("buffered")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	a.Reset()
	if got := a.Pending("sess-1"); got != 0 {
		t.Errorf("Pending after reset = %d, want 0", got)
	}
}
