package stt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempAudio(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write temp audio: %v", err)
	}
	return path
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int
		wantErr error
	}{
		{"valid wav", "clip.wav", 1024, nil},
		{"valid uppercase ext", "clip.MP3", 1024, nil},
		{"empty file", "clip.wav", 0, ErrEmptyAudio},
		{"unsupported format", "clip.txt", 1024, ErrUnsupportedFormat},
		{"no extension", "clip", 1024, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempAudio(t, tt.file, tt.size)
			err := ValidateFile(path)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateFile() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateFile() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTranscribeHappyPath(t *testing.T) {
	svc := &MockService{Text: "  go forward  "}
	g := NewGateway(svc, time.Millisecond, time.Second)

	res := g.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if res.Kind != KindTranscript {
		t.Fatalf("Kind = %v, want KindTranscript (%s)", res.Kind, res.Reason)
	}
	if res.Text != "go forward" {
		t.Errorf("Text = %q, want trimmed transcript", res.Text)
	}
	if len(svc.Released()) != 1 {
		t.Errorf("released %d handles, want 1", len(svc.Released()))
	}
}

func TestTranscribeNoSpeechSentinel(t *testing.T) {
	for _, text := range []string{"[No clear speech detected]", "[no clear speech detected]", "   "} {
		svc := &MockService{Text: text}
		g := NewGateway(svc, time.Millisecond, time.Second)

		res := g.Transcribe(context.Background(), []byte("audio"), "audio/wav")
		if res.Kind != KindNoSpeech {
			t.Errorf("transcript %q: Kind = %v, want KindNoSpeech", text, res.Kind)
		}
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	svc := &MockService{}
	g := NewGateway(svc, time.Millisecond, time.Second)

	res := g.Transcribe(context.Background(), nil, "audio/wav")
	if res.Kind != KindInvalid {
		t.Fatalf("Kind = %v, want KindInvalid", res.Kind)
	}
	if svc.SubmitCount() != 0 {
		t.Error("invalid input must not reach the service")
	}
}

func TestTranscribeReleasesAfterFailure(t *testing.T) {
	svc := &MockService{
		TranscribeFunc: func(ctx context.Context, h Handle) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	g := NewGateway(svc, time.Millisecond, time.Second)

	res := g.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if res.Kind != KindFailed {
		t.Fatalf("Kind = %v, want KindFailed", res.Kind)
	}
	if len(svc.Released()) != 1 {
		t.Errorf("released %d handles after failure, want 1", len(svc.Released()))
	}
}

func TestTranscribePollsUntilReady(t *testing.T) {
	polls := 0
	svc := &MockService{
		Text: "hello",
		PollFunc: func(ctx context.Context, h Handle) (JobState, error) {
			polls++
			if polls < 3 {
				return StateProcessing, nil
			}
			return StateReady, nil
		},
	}
	g := NewGateway(svc, time.Millisecond, time.Second)

	res := g.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if res.Kind != KindTranscript {
		t.Fatalf("Kind = %v, want KindTranscript", res.Kind)
	}
	if polls != 3 {
		t.Errorf("polled %d times, want 3", polls)
	}
}

func TestTranscribeRemoteProcessingFailure(t *testing.T) {
	svc := &MockService{
		PollFunc: func(ctx context.Context, h Handle) (JobState, error) {
			return StateFailed, nil
		},
	}
	g := NewGateway(svc, time.Millisecond, time.Second)

	res := g.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if res.Kind != KindFailed {
		t.Fatalf("Kind = %v, want KindFailed", res.Kind)
	}
	if len(svc.Released()) != 1 {
		t.Error("failed upload must still be released")
	}
}

func TestTranscribePollTimeout(t *testing.T) {
	svc := &MockService{
		PollFunc: func(ctx context.Context, h Handle) (JobState, error) {
			return StateProcessing, nil
		},
	}
	g := NewGateway(svc, time.Millisecond, 10*time.Millisecond)

	res := g.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if res.Kind != KindFailed {
		t.Fatalf("Kind = %v, want KindFailed", res.Kind)
	}
	if res.Reason != "transcription timed out" {
		t.Errorf("Reason = %q, want timeout reason", res.Reason)
	}
}

func TestTranscribeFileUnsupportedFormat(t *testing.T) {
	svc := &MockService{}
	g := NewGateway(svc, time.Millisecond, time.Second)

	path := writeTempAudio(t, "notes.txt", 10)
	res := g.TranscribeFile(context.Background(), path)
	if res.Kind != KindInvalid {
		t.Fatalf("Kind = %v, want KindInvalid", res.Kind)
	}
	if svc.SubmitCount() != 0 {
		t.Error("rejected file must not be submitted")
	}
}

func TestSupportedFormatsStable(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) == 0 {
		t.Fatal("no supported formats")
	}
	for i := 1; i < len(formats); i++ {
		if formats[i-1] >= formats[i] {
			t.Fatalf("formats not sorted: %v", formats)
		}
	}
	// The wire format advertised by /api/status.
	want := fmt.Sprintf("%v", []string{".flac", ".m4a", ".mp3", ".mp4", ".mpeg", ".mpga", ".ogg", ".wav", ".webm"})
	if fmt.Sprintf("%v", formats) != want {
		t.Errorf("SupportedFormats() = %v", formats)
	}
}
