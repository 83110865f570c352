// Package relay implements the session/streaming orchestration core of
// voxrelay: per-connection session tracking, inbound audio reassembly,
// outbound chunk merging with mid-stream cancellation, and the
// request → generate → persist → synthesize pipeline.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voxrelay/voxrelay/internal/log"
	"github.com/voxrelay/voxrelay/pkg/llm"
	"github.com/voxrelay/voxrelay/pkg/protocol"
	"github.com/voxrelay/voxrelay/pkg/store"
	"github.com/voxrelay/voxrelay/pkg/tts"
)

// contextSummaryKey is the context-blob field the rolling conversation
// summary is merged under.
const contextSummaryKey = "summary"

// Options configures a Connection.
type Options struct {
	// Store persists transcripts and context. Required.
	Store store.Store

	// Generator produces replies. Required.
	Generator llm.Generator

	// Speech synthesizes reply audio. Required.
	Speech tts.Provider

	// MediaDir is where finalized audio clips are written.
	MediaDir string

	// ChunkThreshold overrides DefaultChunkThreshold when > 0.
	ChunkThreshold int

	// Logger defaults to the global logger.
	Logger *slog.Logger
}

// Connection orchestrates one frontend connection. It owns the session
// table, the inbound assembler, and the outbound merger, and processes
// events strictly one at a time in arrival order.
//
// State transitions: DISCONNECTED → Connect → CONNECTED → per-event
// processing → Disconnect → DISCONNECTED. In-memory session state dies
// with the connection; durable state survives in the store.
type Connection struct {
	logger    *slog.Logger
	transport Transport

	store     store.Store
	generator llm.Generator

	sessions  *sessionTable
	assembler *Assembler
	merger    *chunkMerger

	connected bool
}

// NewConnection creates a Connection in the disconnected state.
func NewConnection(opts Options) *Connection {
	logger := opts.Logger
	if logger == nil {
		logger = log.Component("relay.connection")
	}

	sessions := newSessionTable()
	return &Connection{
		logger:    logger,
		store:     opts.Store,
		generator: opts.Generator,
		sessions:  sessions,
		assembler: NewAssembler(opts.MediaDir),
		merger:    newChunkMerger(opts.Speech, sessions, opts.ChunkThreshold, logger),
	}
}

// Connect binds the transport, transitions to CONNECTED, and announces
// a fresh session ID.
func (c *Connection) Connect(transport Transport) error {
	c.transport = transport
	c.connected = true
	return c.startNewSession()
}

// Disconnect transitions to DISCONNECTED and discards all in-memory
// per-connection state. Durable state in the store survives.
func (c *Connection) Disconnect() {
	c.connected = false
	c.transport = nil
	c.sessions.reset()
	c.assembler.Reset()
}

// IsConnected reports whether a frontend connection is active.
func (c *Connection) IsConnected() bool {
	return c.connected
}

// RequestCancel flags the session's in-flight TTS stream for
// termination. Inert when no stream is in flight for the session, so a
// late kill never poisons the next synthesis call. Safe to call from
// the transport read loop while the pipeline is streaming.
func (c *Connection) RequestCancel(sessionID string) {
	if !c.sessions.requestCancel(sessionID) {
		c.logger.Debug("cancel request with no stream in flight", "session", sessionID)
	}
}

// SetTTS flips the synthesis flag for a session. Safe to call from the
// transport read loop.
func (c *Connection) SetTTS(sessionID string, enabled bool) {
	c.sessions.setTTS(sessionID, enabled)
}

// HandleEvent dispatches one inbound event. The returned error is
// non-nil only for connection-fatal conditions (no active connection,
// transport failure); everything else is recovered locally and
// reported to the frontend as an event.
func (c *Connection) HandleEvent(ctx context.Context, ev *protocol.Event) error {
	if !c.connected {
		return ErrNoConnection
	}

	switch ev.Type {
	case protocol.TypeNewSession:
		return c.startNewSession()

	case protocol.TypeSetTTS:
		enabled := true
		if ev.Value != nil {
			enabled = *ev.Value
		}
		c.SetTTS(ev.UUID, enabled)
		return nil

	case protocol.TypeGetSessions:
		ids, err := c.store.ListSessions(ctx)
		if err != nil {
			c.logger.Error("list sessions failed", "error", err)
			ids = []string{}
		}
		return c.send(protocol.NewSessionsEvent(ids))

	case protocol.TypeGetTranscripts:
		return c.handleGetTranscripts(ctx, ev.ID)

	case protocol.TypeKillStreaming:
		c.RequestCancel(ev.UUID)
		return nil

	case protocol.TypeDeleteSession:
		if err := c.store.DeleteSession(ctx, ev.ID); err != nil {
			c.logger.Error("delete session failed", "session", ev.ID, "error", err)
			return nil
		}
		c.sessions.drop(ev.ID)
		return c.send(protocol.NewSessionDeletedEvent(ev.ID))

	case protocol.TypeText, protocol.TypeAudio:
		return c.handleQuery(ctx, ev)

	default:
		return c.send(protocol.NewErrorEvent(fmt.Sprintf("Unknown message type: %s", ev.Type)))
	}
}

// startNewSession mints a session ID, registers it, and announces it.
func (c *Connection) startNewSession() error {
	id := uuid.NewString()
	c.sessions.register(id)
	c.logger.Info("session started", "session", id)
	return c.send(protocol.NewUUIDEvent(id))
}

// handleGetTranscripts emits a session's transcript. Sessions with no
// prior writes yield an empty list, not an error.
func (c *Connection) handleGetTranscripts(ctx context.Context, sessionID string) error {
	transcript, err := c.store.FetchTranscript(ctx, sessionID)
	if err != nil {
		c.logger.Error("fetch transcript failed", "session", sessionID, "error", err)
		transcript = []protocol.TranscriptEntry{}
	}
	return c.send(protocol.NewTranscriptsEvent(sessionID, transcript))
}

// handleQuery runs the generation pipeline for text and audio events:
// generate → persist → synthesize → emit transcript item.
func (c *Connection) handleQuery(ctx context.Context, ev *protocol.Event) error {
	sessionID := ev.UUID
	seq := c.sessions.nextSeq(sessionID)

	var prompt, artifact string
	if ev.Type == protocol.TypeAudio {
		if err := c.assembler.Append(sessionID, ev.Audio); err != nil {
			c.logger.Error("audio fragment rejected", "session", sessionID, "error", err)
			return c.send(protocol.NewErrorEvent("Invalid audio fragment"))
		}
		if !ev.Final {
			return nil
		}
		path, err := c.assembler.Finalize(sessionID, seq)
		if err != nil {
			c.logger.Error("audio finalize failed", "session", sessionID, "error", err)
			return c.send(protocol.NewErrorEvent("Could not store audio clip"))
		}
		c.logger.Debug("saved audio clip", "session", sessionID, "path", path)
		artifact = path
	} else {
		prompt = ev.Text
	}

	reply, err := c.generator.Generate(ctx, sessionID, prompt, artifact)
	if err != nil {
		// The generator contract absorbs backend failures; an error here
		// means a broken implementation. Degrade to the fallback anyway.
		c.logger.Error("generator returned error", "session", sessionID, "error", err)
		reply = &llm.Reply{Response: llm.FallbackResponse}
	}

	entry := protocol.TranscriptEntry{Query: reply.Query, Response: reply.Response}
	if err := c.store.AppendTranscript(ctx, sessionID, entry); err != nil {
		c.logger.Error("append transcript failed", "session", sessionID, "error", err)
	}
	if reply.Context != "" {
		updates := map[string]string{contextSummaryKey: reply.Context}
		if err := c.store.MergeContext(ctx, sessionID, updates); err != nil {
			c.logger.Error("merge context failed", "session", sessionID, "error", err)
		}
	}

	if c.sessions.ttsEnabled(sessionID) {
		if err := c.merger.stream(ctx, c.transport, sessionID, reply.Response); err != nil {
			return err
		}
	} else {
		c.logger.Debug("tts disabled, skipping synthesis", "session", sessionID)
	}

	if ev.Type == protocol.TypeText {
		return c.send(protocol.NewResponseEvent(reply.Response, reply.Context))
	}
	return c.send(protocol.NewTranscriptItemEvent(entry, reply.Context))
}

// send writes one JSON event, wrapping failures as transport errors.
func (c *Connection) send(v any) error {
	if err := c.transport.SendJSON(v); err != nil {
		return errors.Join(ErrTransport, err)
	}
	return nil
}
