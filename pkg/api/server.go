// Package api exposes the command pipeline and queue over HTTP. It serves
// two kinds of callers: the web front end submitting audio or text commands,
// and the actuator agent polling for pending work.
package api

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/pipeline"
	"github.com/teslashibe/go-rover/pkg/queue"
)

// MaxUploadBytes caps multipart audio uploads.
const MaxUploadBytes = 16 * 1024 * 1024

// Server is the command API server.
type Server struct {
	app       *fiber.App
	pipe      *pipeline.Pipeline
	queue     *queue.Queue
	uploadDir string
	startedAt time.Time

	// commandHub broadcasts enqueued entries to dashboard clients.
	commandHub *hub.Hub
}

// NewServer creates the API server. Uploaded audio is staged under uploadDir
// for the duration of a request.
func NewServer(pipe *pipeline.Pipeline, q *queue.Queue, uploadDir string) *Server {
	s := &Server{
		pipe:       pipe,
		queue:      q,
		uploadDir:  uploadDir,
		startedAt:  time.Now(),
		commandHub: hub.New("commands"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "rover command server",
		DisableStartupMessage: true,
		BodyLimit:             MaxUploadBytes,
	})

	// CORS for the browser front end
	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/upload-audio", s.handleUploadAudio)
	api.Post("/text-command", s.handleTextCommand)
	api.Get("/commands", s.handleListPending)
	api.Post("/commands/:id/ack", s.handleAck)
	api.Post("/commands/:id/fail", s.handleFail)
	api.Get("/history", s.handleHistory)
	api.Get("/status", s.handleStatus)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/commands", websocket.New(s.handleCommandsWS))

	s.app = app
	return s
}

// Listen starts the server on addr. Blocks until shutdown.
func (s *Server) Listen(addr string) error {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return err
	}
	go s.commandHub.Run()
	log.Info("command server listening", "addr", addr, "upload_dir", s.uploadDir)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying fiber app (used in tests).
func (s *Server) App() *fiber.App {
	return s.app
}
