package tts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/voxrelay/voxrelay/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock(3, 128)
	ctx := context.Background()

	t.Run("Stream returns frames in order", func(t *testing.T) {
		stream, err := mock.Stream(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer stream.Close()

		frames := 0
		for {
			frame, err := stream.Read()
			if err != nil {
				t.Fatalf("read error: %v", err)
			}
			if frame == nil {
				break
			}
			if len(frame) != 128 {
				t.Errorf("frame size = %d, want 128", len(frame))
			}
			frames++
		}
		if frames != 3 {
			t.Errorf("expected 3 frames, got %d", frames)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if mock.CallCount("Stream") != 1 {
			t.Errorf("expected 1 Stream call, got %d", mock.CallCount("Stream"))
		}
		calls := mock.Calls()
		if calls[0].Text != "Hello world" {
			t.Errorf("recorded text = %q", calls[0].Text)
		}
	})
}

func TestMockStreamError(t *testing.T) {
	streamErr := errors.New("backend hiccup")
	mock := tts.WithStreamError(2, 64, streamErr)

	stream, err := mock.Stream(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		frame, err := stream.Read()
		if err != nil || frame == nil {
			t.Fatalf("frame %d: frame=%v err=%v", i, frame, err)
		}
	}
	if _, err := stream.Read(); !errors.Is(err, streamErr) {
		t.Errorf("expected stream error after good frames, got %v", err)
	}
}

func TestMockStreamClosed(t *testing.T) {
	stream := tts.NewMockStream([]byte{1, 2, 3})
	stream.Close()
	if _, err := stream.Read(); !errors.Is(err, tts.ErrStreamClosed) {
		t.Errorf("expected ErrStreamClosed, got %v", err)
	}
}

func TestCartesiaConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []tts.Option
		wantErr error
	}{
		{
			name:    "missing api key",
			opts:    []tts.Option{tts.WithVoice("v1")},
			wantErr: tts.ErrNoAPIKey,
		},
		{
			name:    "missing voice id",
			opts:    []tts.Option{tts.WithAPIKey("key")},
			wantErr: tts.ErrNoVoiceID,
		},
		{
			name: "valid",
			opts: []tts.Option{tts.WithAPIKey("key"), tts.WithVoice("v1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tts.NewCartesia(tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewCartesia() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := tts.DefaultConfig()
	if cfg.ModelID != "sonic-2" {
		t.Errorf("model = %q, want sonic-2", cfg.ModelID)
	}
	if cfg.OutputFormat.Encoding != tts.EncodingPCMS16LE {
		t.Errorf("encoding = %q", cfg.OutputFormat.Encoding)
	}
	if cfg.OutputFormat.SampleRate != 44100 {
		t.Errorf("sample rate = %d", cfg.OutputFormat.SampleRate)
	}
}
