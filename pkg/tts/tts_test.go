package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChainFallback(t *testing.T) {
	ctx := context.Background()

	// First provider fails
	failing := WithError(errors.New("provider 1 failed"))

	// Second provider succeeds
	working := NewMock()
	working.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		return &AudioResult{Audio: []byte("mp3 bytes"), MIME: "audio/mpeg", CharCount: len(text)}, nil
	}

	chain, err := NewChain(failing, working)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	defer chain.Close()

	result, err := chain.Synthesize(ctx, "Moving forward now.")
	if err != nil {
		t.Fatalf("Chain synthesize failed: %v", err)
	}
	if string(result.Audio) != "mp3 bytes" {
		t.Errorf("Unexpected audio: %q", result.Audio)
	}
}

func TestChainAllFail(t *testing.T) {
	ctx := context.Background()

	p1 := WithError(errors.New("provider 1 failed"))
	p2 := WithError(errors.New("provider 2 failed"))

	chain, _ := NewChain(p1, p2)
	defer chain.Close()

	_, err := chain.Synthesize(ctx, "test")
	if err == nil {
		t.Fatal("Expected error when all providers fail")
	}

	chainErr, ok := err.(*ChainError)
	if !ok {
		t.Fatalf("Expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(chainErr.Errors))
	}
}

func TestChainRequiresProvider(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("NewChain() error = %v, want ErrProviderUnavailable", err)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewElevenLabs(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("missing key error = %v, want ErrNoAPIKey", err)
	}
	if _, err := NewElevenLabs(WithAPIKey("key"), WithVoice("")); !errors.Is(err, ErrNoVoiceID) {
		t.Errorf("missing voice error = %v, want ErrNoVoiceID", err)
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("fake mp3"))
	}))
	defer srv.Close()

	provider, err := NewElevenLabs(
		WithAPIKey("test-key"),
		WithBaseURL(srv.URL),
		WithVoice("voice-123"),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "Turning left.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if string(result.Audio) != "fake mp3" {
		t.Errorf("Audio = %q", result.Audio)
	}
	if result.MIME != "audio/mpeg" {
		t.Errorf("MIME = %q, want audio/mpeg", result.MIME)
	}
	if !strings.HasPrefix(gotPath, "/text-to-speech/voice-123") {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if gotPayload["text"] != "Turning left." {
		t.Errorf("payload text = %v", gotPayload["text"])
	}
	if gotPayload["model_id"] != ModelMonolingualV1 {
		t.Errorf("payload model_id = %v", gotPayload["model_id"])
	}
}

func TestElevenLabsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"detail": map[string]string{"message": "invalid api key", "status": "unauthorized"},
		})
	}))
	defer srv.Close()

	provider, _ := NewElevenLabs(WithAPIKey("bad-key"), WithBaseURL(srv.URL))
	defer provider.Close()

	_, err := provider.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if !apiErr.IsUnauthorized() {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid api key" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestElevenLabsRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("mp3 after retries"))
	}))
	defer srv.Close()

	provider, _ := NewElevenLabs(
		WithAPIKey("key"),
		WithBaseURL(srv.URL),
		WithRetry(3, 0),
	)
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize after retries: %v", err)
	}
	if string(result.Audio) != "mp3 after retries" {
		t.Errorf("Audio = %q", result.Audio)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestMockTracksCalls(t *testing.T) {
	m := NewMock()
	m.Synthesize(context.Background(), "one")
	m.Synthesize(context.Background(), "two")
	m.Health(context.Background())

	if m.CallCount("Synthesize") != 2 {
		t.Errorf("Synthesize count = %d, want 2", m.CallCount("Synthesize"))
	}
	if m.CallCount("Health") != 1 {
		t.Errorf("Health count = %d, want 1", m.CallCount("Health"))
	}
}
