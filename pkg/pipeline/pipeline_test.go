package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teslashibe/go-rover/pkg/action"
	"github.com/teslashibe/go-rover/pkg/intent"
	"github.com/teslashibe/go-rover/pkg/stt"
)

// fixedTranscriber returns a canned transcription result.
type fixedTranscriber struct {
	result stt.Result
}

func (f fixedTranscriber) TranscribeFile(ctx context.Context, path string) stt.Result {
	return f.result
}

// keywordClassifier uses the intent fallback rules without a live service.
func keywordClassifier() *intent.Classifier {
	return intent.NewClassifier(intent.CompleterFunc(
		func(ctx context.Context, prompt string) (string, error) {
			return "", context.DeadlineExceeded
		},
	))
}

func TestRunTextCommand(t *testing.T) {
	p := New(fixedTranscriber{}, keywordClassifier())
	res := p.RunText(context.Background(), "go forward")

	if !res.Succeeded {
		t.Fatalf("Succeeded = false: %s", res.ErrorDetail)
	}
	if res.Action != action.CodeForward {
		t.Errorf("Action = %d, want 1", int(res.Action))
	}
	if res.Kind != action.KindCommand {
		t.Errorf("Kind = %s, want command", res.Kind)
	}
	if res.Transcription == nil || *res.Transcription != "go forward" {
		t.Error("text input should stand in as its own transcription")
	}
	if res.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestRunAudioTranscriptFlowsToClassifier(t *testing.T) {
	p := New(
		fixedTranscriber{stt.Result{Kind: stt.KindTranscript, Text: "turn left"}},
		keywordClassifier(),
	)
	res := p.RunAudio(context.Background(), "clip.wav")

	if !res.Succeeded {
		t.Fatalf("Succeeded = false: %s", res.ErrorDetail)
	}
	if res.Action != action.CodeLeft {
		t.Errorf("Action = %d, want 3", int(res.Action))
	}
}

func TestRunAudioNoSpeech(t *testing.T) {
	p := New(fixedTranscriber{stt.Result{Kind: stt.KindNoSpeech}}, keywordClassifier())
	res := p.RunAudio(context.Background(), "clip.wav")

	if res.Succeeded {
		t.Fatal("no-speech audio must not succeed")
	}
	if !strings.Contains(res.ErrorDetail, "no clear speech") {
		t.Errorf("ErrorDetail = %q", res.ErrorDetail)
	}
}

func TestRunAudioEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	// Real gateway so validation happens before any service call.
	gateway := stt.NewGateway(&stt.MockService{}, 0, 0)
	p := New(gateway, keywordClassifier())

	res := p.RunAudio(context.Background(), path)
	if res.Succeeded {
		t.Fatal("empty audio must not succeed")
	}
	if !strings.Contains(res.ErrorDetail, "empty") {
		t.Errorf("ErrorDetail = %q, want mention of empty audio", res.ErrorDetail)
	}
}

func TestRunAudioTranscriptionFailure(t *testing.T) {
	p := New(
		fixedTranscriber{stt.Result{Kind: stt.KindFailed, Reason: "service unavailable"}},
		keywordClassifier(),
	)
	res := p.RunAudio(context.Background(), "clip.wav")

	if res.Succeeded {
		t.Fatal("failed transcription must not succeed")
	}
	if !strings.Contains(res.ErrorDetail, "service unavailable") {
		t.Errorf("ErrorDetail = %q, want underlying reason", res.ErrorDetail)
	}
}
