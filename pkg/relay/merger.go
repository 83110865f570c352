package relay

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/voxrelay/voxrelay/pkg/protocol"
	"github.com/voxrelay/voxrelay/pkg/tts"
)

// DefaultChunkThreshold is the number of synthesized frames merged
// into one outbound chunk. Individual frames are too small to play
// without audible gaps; merging smooths them out.
const DefaultChunkThreshold = 15

// chunkMerger re-buffers the speech provider's frame stream into
// larger chunks before emission, honoring per-session cancellation.
type chunkMerger struct {
	provider  tts.Provider
	sessions  *sessionTable
	threshold int
	logger    *slog.Logger
}

func newChunkMerger(provider tts.Provider, sessions *sessionTable, threshold int, logger *slog.Logger) *chunkMerger {
	if threshold <= 0 {
		threshold = DefaultChunkThreshold
	}
	return &chunkMerger{
		provider:  provider,
		sessions:  sessions,
		threshold: threshold,
		logger:    logger,
	}
}

// stream synthesizes text and emits merged chunks to the transport.
//
// Emission sequence: tts_start, zero or more (tts_chunk + binary),
// then exactly one terminal:
//   - tts_stopped after a cancellation (buffer discarded, stream
//     abandoned without draining), or
//   - optional (tts_chunk_final + binary) followed by tts_complete, or
//   - error when the streaming handle itself fails (the provider
//     renews the handle internally; the utterance is not retried).
//
// The returned error is non-nil only for transport failures.
func (m *chunkMerger) stream(ctx context.Context, transport Transport, sessionID, text string) error {
	if err := transport.SendJSON(protocol.NewNoticeEvent(protocol.TypeTTSStart, "Starting TTS processing")); err != nil {
		return errors.Join(ErrTransport, err)
	}

	frames, err := m.provider.Stream(ctx, text)
	if err != nil {
		m.logger.Error("tts stream open failed", "session", sessionID, "error", err)
		if err := transport.SendJSON(protocol.NewErrorEvent("TTS error: " + err.Error())); err != nil {
			return errors.Join(ErrTransport, err)
		}
		return nil
	}
	defer frames.Close()

	m.sessions.beginStream(sessionID)
	defer m.sessions.endStream(sessionID)

	var buffer bytes.Buffer
	frameCount := 0

	for {
		if m.sessions.consumeCancel(sessionID) {
			buffer.Reset()
			frameCount = 0
			if err := transport.SendJSON(protocol.NewNoticeEvent(protocol.TypeTTSStopped,
				"TTS streaming stopped on client request")); err != nil {
				return errors.Join(ErrTransport, err)
			}
			return nil
		}

		frame, err := frames.Read()
		if err != nil {
			m.logger.Error("tts streaming error", "session", sessionID, "error", err)
			if err := transport.SendJSON(protocol.NewErrorEvent("TTS error: " + err.Error())); err != nil {
				return errors.Join(ErrTransport, err)
			}
			return nil
		}
		if frame == nil {
			break
		}

		buffer.Write(frame)
		frameCount++

		if frameCount >= m.threshold {
			if err := m.emitChunk(transport, protocol.TypeTTSChunk, buffer.Bytes()); err != nil {
				return err
			}
			buffer.Reset()
			frameCount = 0
		}
	}

	if buffer.Len() > 0 {
		m.logger.Debug("sending final merged chunk", "session", sessionID, "bytes", buffer.Len())
		if err := m.emitChunk(transport, protocol.TypeTTSChunkFinal, buffer.Bytes()); err != nil {
			return err
		}
		buffer.Reset()
	}

	if err := transport.SendJSON(protocol.NewNoticeEvent(protocol.TypeTTSComplete, "TTS processing complete")); err != nil {
		return errors.Join(ErrTransport, err)
	}
	return nil
}

// emitChunk sends a chunk marker followed by the merged audio bytes.
func (m *chunkMerger) emitChunk(transport Transport, eventType protocol.EventType, audio []byte) error {
	if err := transport.SendJSON(protocol.NewNoticeEvent(eventType, "")); err != nil {
		return errors.Join(ErrTransport, err)
	}
	if err := transport.SendBytes(audio); err != nil {
		return errors.Join(ErrTransport, err)
	}
	return nil
}
