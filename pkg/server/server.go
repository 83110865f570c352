// Package server exposes the relay over HTTP and WebSocket using Fiber.
// Each /ws/chat connection gets its own relay.Connection; a small REST
// surface covers session inspection and call scripts.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voxrelay/voxrelay/internal/log"
	"github.com/voxrelay/voxrelay/pkg/llm"
	"github.com/voxrelay/voxrelay/pkg/relay"
	"github.com/voxrelay/voxrelay/pkg/store"
	"github.com/voxrelay/voxrelay/pkg/tts"
)

// Options configures a Server.
type Options struct {
	Store     store.Store
	Generator llm.Generator

	// Speech creates the speech provider for one chat connection.
	// Providers hold a single streaming handle, so connections must not
	// share one: overlapping utterances on a shared provider reject
	// with ErrStreamBusy.
	Speech func() (tts.Provider, error)

	MediaDir       string
	ChunkThreshold int
	Logger         *slog.Logger
}

// Server hosts the chat WebSocket endpoint and the REST API.
type Server struct {
	app    *fiber.App
	opts   Options
	logger *slog.Logger

	// Stats
	activeConns      atomic.Int64
	messagesReceived atomic.Uint64
}

// New creates a Server with routes registered but not listening.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Component("server")
	}

	s := &Server{
		opts:   opts,
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "voxrelay",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:id/transcripts", s.handleGetTranscripts)
	api.Delete("/sessions/:id", s.handleDeleteSession)
	api.Get("/scripts", s.handleListScripts)
	api.Get("/scripts/:name", s.handleGetScript)
	api.Post("/scripts/:name", s.handleAddScript)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(s.handleChat))

	s.app = app
	return s
}

// Listen blocks serving on addr until Shutdown or a fatal error.
func (s *Server) Listen(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ActiveConnections returns the number of live chat connections.
func (s *Server) ActiveConnections() int64 {
	return s.activeConns.Load()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":            "ok",
		"connections":       s.activeConns.Load(),
		"messages_received": s.messagesReceived.Load(),
	})
}

// handleChat runs one chat connection: a relay connection fed by the
// socket's read loop. Control events (kill_streaming, set_tts) are
// applied inline so they can land while a TTS stream is in flight;
// everything else is queued to a processor goroutine in arrival order.
func (s *Server) handleChat(c *websocket.Conn) {
	s.activeConns.Add(1)
	defer s.activeConns.Add(-1)

	conn, speech, err := s.newChatConnection()
	if err != nil {
		s.logger.Error("speech provider init failed", "error", err)
		return
	}
	defer speech.Close()

	transport := newWSTransport(c)
	if err := conn.Connect(transport); err != nil {
		s.logger.Error("connect failed", "error", err)
		return
	}
	defer conn.Disconnect()

	runConnection(c, conn, transport, s.logger, &s.messagesReceived)
}

// newChatConnection builds the relay connection for one chat socket,
// with its own speech provider.
func (s *Server) newChatConnection() (*relay.Connection, tts.Provider, error) {
	speech, err := s.opts.Speech()
	if err != nil {
		return nil, nil, err
	}

	conn := relay.NewConnection(relay.Options{
		Store:          s.opts.Store,
		Generator:      s.opts.Generator,
		Speech:         speech,
		MediaDir:       s.opts.MediaDir,
		ChunkThreshold: s.opts.ChunkThreshold,
	})
	return conn, speech, nil
}
