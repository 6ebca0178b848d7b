package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/pipeline"
	"github.com/teslashibe/go-rover/pkg/stt"
)

// handleUploadAudio accepts a multipart audio file, runs it through the
// pipeline and enqueues the result. The staged file is removed afterwards.
func (s *Server) handleUploadAudio(c *fiber.Ctx) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "no audio file provided",
		})
	}

	if err := validateUploadName(file.Filename); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	// Stage with a timestamped name so concurrent uploads never collide.
	name := fmt.Sprintf("%s_%s%s",
		time.Now().Format("20060102_150405.000"),
		uuid.NewString()[:8],
		filepath.Ext(file.Filename),
	)
	path := filepath.Join(s.uploadDir, name)
	if err := c.SaveFile(file, path); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "failed to store upload",
		})
	}
	defer os.Remove(path)

	result := s.pipe.RunAudio(c.Context(), path)
	return s.respondWithResult(c, result)
}

// textCommandRequest is the body for POST /api/text-command.
type textCommandRequest struct {
	Text string `json:"text"`
}

// handleTextCommand classifies a text command directly.
func (s *Server) handleTextCommand(c *fiber.Ctx) error {
	var req textCommandRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "no text provided",
		})
	}

	result := s.pipe.RunText(c.Context(), req.Text)
	return s.respondWithResult(c, result)
}

// respondWithResult enqueues successful results and shapes the response.
func (s *Server) respondWithResult(c *fiber.Ctx, result pipeline.CommandResult) error {
	if !result.Succeeded {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   result.ErrorDetail,
		})
	}

	source := ""
	if result.Transcription != nil {
		source = *result.Transcription
	}
	entry, err := s.queue.Enqueue(result, source)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	s.commandHub.BroadcastJSON(entry)
	log.Info("command enqueued",
		"id", entry.ID,
		"action", int(entry.Action),
		"kind", string(entry.Kind),
	)

	return c.JSON(fiber.Map{
		"success":    true,
		"result":     result,
		"command_id": entry.ID,
	})
}

// handleListPending returns pending entries for the agent, oldest first.
func (s *Server) handleListPending(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"commands": s.queue.ListPending(),
	})
}

// handleAck marks one entry processed. Acknowledging an unknown or already
// settled entry returns 404 so the agent can tell redelivery from success.
func (s *Server) handleAck(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid command id",
		})
	}

	if !s.queue.MarkProcessed(id) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "command not found",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// failRequest is the body for POST /api/commands/:id/fail.
type failRequest struct {
	Reason string `json:"reason"`
}

// handleFail marks one entry terminally failed after the agent exhausted its
// execution retries.
func (s *Server) handleFail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid command id",
		})
	}

	var req failRequest
	_ = c.BodyParser(&req)

	if !s.queue.MarkFailed(id, req.Reason) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "command not found",
		})
	}
	log.Warn("command marked failed", "id", id, "reason", req.Reason)
	return c.JSON(fiber.Map{"success": true})
}

// handleHistory returns recent entries, newest first.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	return c.JSON(fiber.Map{
		"history": s.queue.History(limit),
	})
}

// handleStatus reports server health and queue counters.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	stats := s.queue.Stats()
	return c.JSON(fiber.Map{
		"status":            "online",
		"pending_commands":  stats.Pending,
		"total_commands":    stats.Total,
		"supported_formats": stt.SupportedFormats(),
		"uptime_seconds":    int(time.Since(s.startedAt).Seconds()),
		"timestamp":         time.Now(),
	})
}

// handleCommandsWS streams enqueued entries to dashboard clients.
func (s *Server) handleCommandsWS(c *websocket.Conn) {
	client := hub.NewClient(s.commandHub, c)
	client.Run()
}

// validateUploadName checks the uploaded filename against the audio
// format allow-list before anything touches disk.
func validateUploadName(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fmt.Errorf("missing file extension")
	}
	for _, allowed := range stt.SupportedFormats() {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported audio format %q", ext)
}
