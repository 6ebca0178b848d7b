// Package stt turns uploaded audio files into text through an external
// speech-to-text service.
//
// The Gateway validates input before any network call, then drives the
// service's submit/poll/release cycle to a terminal state. Upload resources
// created on the remote side are always released, on success and failure.
package stt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Kind classifies a transcription outcome.
type Kind int

const (
	// KindTranscript means Text holds the transcribed speech.
	KindTranscript Kind = iota
	// KindNoSpeech means the audio contained no usable speech.
	KindNoSpeech
	// KindFailed means the external service failed or timed out.
	KindFailed
	// KindInvalid means the input was rejected before any external call.
	KindInvalid
)

// Result is the outcome of a transcription attempt.
type Result struct {
	Kind   Kind
	Text   string // set when Kind == KindTranscript
	Reason string // set when Kind is KindFailed or KindInvalid
}

// JobState is the remote processing state reported by the service.
type JobState int

const (
	StateProcessing JobState = iota
	StateReady
	StateFailed
)

// Handle identifies an upload resource on the remote service.
type Handle struct {
	Name string // server-side resource name, used for polling and release
	URI  string // content reference passed to transcription
	MIME string // declared content type of the uploaded audio
}

// Service is the external speech-to-text boundary. Implementations upload
// audio, report processing state, produce a transcript and release the
// server-side resource.
type Service interface {
	Submit(ctx context.Context, audio []byte, mimeType string) (Handle, error)
	Poll(ctx context.Context, h Handle) (JobState, error)
	Transcribe(ctx context.Context, h Handle) (string, error)
	Release(ctx context.Context, h Handle) error
}

// noSpeechSentinel is what the transcription prompt instructs the model to
// return for unclear or empty audio.
const noSpeechSentinel = "[No clear speech detected]"

// MaxAudioBytes is the upload size cap, matching the service's file limit.
const MaxAudioBytes = 25 * 1024 * 1024

// supportedExtensions is the audio format allow-list.
var supportedExtensions = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mp3",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".mp4":  "audio/mp4",
	".flac": "audio/flac",
	".mpga": "audio/mpeg",
	".mpeg": "audio/mpeg",
}

// SupportedFormats returns the allowed file extensions, sorted.
func SupportedFormats() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Gateway wraps a Service with validation, polling and cleanup.
type Gateway struct {
	svc          Service
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewGateway creates a Gateway over svc with the configured poll cadence.
// Zero values fall back to 1s interval and 60s timeout.
func NewGateway(svc Service, pollInterval, pollTimeout time.Duration) *Gateway {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}
	return &Gateway{svc: svc, pollInterval: pollInterval, pollTimeout: pollTimeout}
}

// ValidateFile checks path against the format allow-list and size limits
// without reading the file contents.
func ValidateFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmptyAudio
	}
	if info.Size() > MaxAudioBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrAudioTooLarge, info.Size(), MaxAudioBytes)
	}
	return nil
}

// TranscribeFile validates path and runs the full transcription cycle.
// Validation failures return KindInvalid without touching the service.
// The call blocks until the remote job reaches a terminal state or the
// poll timeout expires; a timeout is a failure, not retried here.
func (g *Gateway) TranscribeFile(ctx context.Context, path string) Result {
	if err := ValidateFile(path); err != nil {
		return Result{Kind: KindInvalid, Reason: err.Error()}
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return Result{Kind: KindInvalid, Reason: fmt.Sprintf("read audio file: %v", err)}
	}

	mime := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return g.Transcribe(ctx, audio, mime)
}

// Transcribe runs submit → poll → transcribe → release on raw audio bytes.
func (g *Gateway) Transcribe(ctx context.Context, audio []byte, mimeType string) Result {
	if len(audio) == 0 {
		return Result{Kind: KindInvalid, Reason: ErrEmptyAudio.Error()}
	}
	if len(audio) > MaxAudioBytes {
		return Result{Kind: KindInvalid, Reason: fmt.Sprintf("%v: %d bytes", ErrAudioTooLarge, len(audio))}
	}

	handle, err := g.svc.Submit(ctx, audio, mimeType)
	if err != nil {
		return Result{Kind: KindFailed, Reason: fmt.Sprintf("submit audio: %v", err)}
	}
	// The upload resource must not outlive this call. Release is best-effort
	// and uses a fresh context so it still runs after a deadline failure.
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = g.svc.Release(releaseCtx, handle)
	}()

	if res, ok := g.waitReady(ctx, handle); !ok {
		return res
	}

	text, err := g.svc.Transcribe(ctx, handle)
	if err != nil {
		return Result{Kind: KindFailed, Reason: fmt.Sprintf("transcribe: %v", err)}
	}

	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, noSpeechSentinel) {
		return Result{Kind: KindNoSpeech}
	}
	return Result{Kind: KindTranscript, Text: text}
}

// waitReady polls until the job is ready, failed or the timeout expires.
func (g *Gateway) waitReady(ctx context.Context, h Handle) (Result, bool) {
	deadline := time.Now().Add(g.pollTimeout)
	for {
		state, err := g.svc.Poll(ctx, h)
		if err != nil {
			return Result{Kind: KindFailed, Reason: fmt.Sprintf("poll: %v", err)}, false
		}
		switch state {
		case StateReady:
			return Result{}, true
		case StateFailed:
			return Result{Kind: KindFailed, Reason: "audio processing failed"}, false
		}
		if time.Now().After(deadline) {
			return Result{Kind: KindFailed, Reason: "transcription timed out"}, false
		}
		select {
		case <-ctx.Done():
			return Result{Kind: KindFailed, Reason: ctx.Err().Error()}, false
		case <-time.After(g.pollInterval):
		}
	}
}
