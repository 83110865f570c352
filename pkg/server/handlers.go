package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/voxrelay/voxrelay/pkg/store"
)

// handleListSessions returns the known session IDs.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	ids, err := s.opts.Store.ListSessions(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"sessions": ids, "count": len(ids)})
}

// handleGetTranscripts returns a session's transcript and context.
func (s *Server) handleGetTranscripts(c *fiber.Ctx) error {
	id := c.Params("id")

	transcript, err := s.opts.Store.FetchTranscript(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	blob, err := s.opts.Store.GetContext(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"session_id":  id,
		"transcripts": transcript,
		"context":     blob,
	})
}

// handleDeleteSession purges a session's persisted state.
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.opts.Store.DeleteSession(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// handleListScripts returns the stored call script names.
func (s *Server) handleListScripts(c *fiber.Ctx) error {
	names, err := s.opts.Store.ListScripts(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"scripts": names})
}

// handleGetScript returns one call script body.
func (s *Server) handleGetScript(c *fiber.Ctx) error {
	name := c.Params("name")

	content, err := s.opts.Store.FetchScript(c.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "script not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"name": name, "content": content})
}

// AddScriptRequest is the body for storing a call script.
type AddScriptRequest struct {
	Content string `json:"content"`
}

// handleAddScript stores a call script under the path name.
func (s *Server) handleAddScript(c *fiber.Ctx) error {
	name := c.Params("name")

	var req AddScriptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content is required"})
	}

	if err := s.opts.Store.AddScript(c.Context(), name, req.Content); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"stored": name})
}
