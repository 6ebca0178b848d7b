// Package pipeline orchestrates transcription and intent classification into
// a single CommandResult, for either audio files or direct text input.
//
// The pipeline holds no state across calls and is safe for concurrent use.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-rover/pkg/action"
	"github.com/teslashibe/go-rover/pkg/intent"
	"github.com/teslashibe/go-rover/pkg/stt"
)

// CommandResult is the outcome of processing one input.
//
// Succeeded=false means the input never reached classification; such results
// carry an ErrorDetail and no action or kind.
type CommandResult struct {
	Transcription  *string     `json:"transcription"`
	Action         action.Code `json:"action_number"`
	SpokenResponse string      `json:"voice_response"`
	Kind           action.Kind `json:"command_type"`
	Succeeded      bool        `json:"success"`
	ErrorDetail    string      `json:"error,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Transcriber is the transcription gateway boundary consumed by the pipeline.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) stt.Result
}

// Classifier is the intent classification boundary consumed by the pipeline.
type Classifier interface {
	Classify(ctx context.Context, text string) intent.Result
}

// Pipeline wires the transcription gateway and the intent classifier.
type Pipeline struct {
	stt    Transcriber
	intent Classifier
	logger *slog.Logger
}

// New creates a Pipeline.
func New(transcriber Transcriber, classifier Classifier) *Pipeline {
	return &Pipeline{
		stt:    transcriber,
		intent: classifier,
		logger: slog.Default().With("component", "pipeline"),
	}
}

// RunAudio transcribes the audio file at path and classifies the transcript.
// Transcription failures short-circuit: classification is skipped and the
// result carries the failure reason.
func (p *Pipeline) RunAudio(ctx context.Context, path string) CommandResult {
	res := p.stt.TranscribeFile(ctx, path)

	switch res.Kind {
	case stt.KindInvalid:
		return p.failure(res.Reason)
	case stt.KindFailed:
		return p.failure(fmt.Sprintf("transcription failed: %s", res.Reason))
	case stt.KindNoSpeech:
		return p.failure("no clear speech detected in audio")
	}

	p.logger.Info("audio transcribed", "text", res.Text)
	return p.classify(ctx, res.Text)
}

// RunText classifies text directly, with the input standing in as its own
// transcription.
func (p *Pipeline) RunText(ctx context.Context, text string) CommandResult {
	return p.classify(ctx, text)
}

func (p *Pipeline) classify(ctx context.Context, text string) CommandResult {
	res := p.intent.Classify(ctx, text)

	transcription := text
	result := CommandResult{
		Transcription:  &transcription,
		Action:         res.Action,
		SpokenResponse: res.Response,
		Kind:           res.Kind,
		Succeeded:      true,
		Timestamp:      time.Now(),
	}

	p.logger.Info("input classified",
		"action", int(res.Action),
		"kind", string(res.Kind),
	)
	return result
}

func (p *Pipeline) failure(detail string) CommandResult {
	p.logger.Warn("pipeline failure", "error", detail)
	return CommandResult{
		Succeeded:   false,
		ErrorDetail: detail,
		Timestamp:   time.Now(),
	}
}
