// roverd is the rover command server. It accepts voice and text commands,
// classifies them, and queues movement actions for the actuator agent.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/api"
	"github.com/teslashibe/go-rover/pkg/intent"
	"github.com/teslashibe/go-rover/pkg/pipeline"
	"github.com/teslashibe/go-rover/pkg/queue"
	"github.com/teslashibe/go-rover/pkg/stt"
)

func main() {
	config.LoadDotenv()

	addr := flag.String("addr", config.Env("LISTEN_ADDR", config.DefaultListenAddr), "listen address")
	uploadDir := flag.String("upload-dir", config.Env("UPLOAD_DIR", config.DefaultUploadDir), "staging directory for audio uploads")
	logLevel := flag.String("log-level", config.Env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	apiKey := config.GeminiKey()
	if apiKey == "" {
		log.Error("GEMINI_API_KEY is not set")
		return
	}

	sttSvc, err := stt.NewGemini(apiKey, stt.WithLogger(log.L()))
	if err != nil {
		log.Error("failed to create transcription service", "error", err)
		return
	}
	gateway := stt.NewGateway(sttSvc, time.Second, 60*time.Second)

	completer, err := intent.NewGeminiCompleter(apiKey)
	if err != nil {
		log.Error("failed to create intent completer", "error", err)
		return
	}
	classifier := intent.NewClassifierWithLogger(completer, log.L())

	pipe := pipeline.New(gateway, classifier)
	q := queue.New()
	server := api.NewServer(pipe, q, *uploadDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Listen(*addr); err != nil {
		log.Error("server exited", "error", err)
	}
}
