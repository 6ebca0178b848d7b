package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com"
	defaultGeminiModel = "gemini-2.5-flash"
	defaultHTTPTimeout = 30 * time.Second
)

// transcribePrompt instructs the model to return only the transcript, with a
// fixed sentinel for unusable audio.
const transcribePrompt = `Please transcribe the audio content accurately.
Return only the transcribed text without any additional comments or explanations.
If the audio is unclear or empty, respond with: "[No clear speech detected]"`

// Gemini implements Service over the Gemini Files API: audio is uploaded as
// a server-side file, polled until the service finishes ingesting it, then
// transcribed with a generateContent call referencing the file.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// GeminiOption configures the Gemini service.
type GeminiOption func(*Gemini)

// WithModel overrides the default transcription model.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(url string) GeminiOption {
	return func(g *Gemini) { g.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.http = c }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *Gemini) { g.logger = logger.With("component", "stt.gemini") }
}

// NewGemini creates the Gemini speech-to-text service.
func NewGemini(apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	g := &Gemini{
		apiKey:  apiKey,
		model:   defaultGeminiModel,
		baseURL: geminiBaseURL,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:  slog.Default().With("component", "stt.gemini"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// geminiFile is the file resource shape shared by upload and poll responses.
type geminiFile struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
}

// Submit uploads audio bytes as a Gemini file resource.
func (g *Gemini) Submit(ctx context.Context, audio []byte, mimeType string) (Handle, error) {
	url := fmt.Sprintf("%s/upload/v1beta/files?key=%s", g.baseURL, g.apiKey)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(audio))
	if err != nil {
		return Handle{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(audio)))

	resp, err := g.http.Do(req)
	if err != nil {
		return Handle{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Handle{}, g.parseError(resp)
	}

	var result struct {
		File geminiFile `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Handle{}, fmt.Errorf("decode upload response: %w", err)
	}
	if result.File.Name == "" {
		return Handle{}, fmt.Errorf("upload response missing file name")
	}

	g.logger.Debug("audio uploaded",
		"file", result.File.Name,
		"bytes", len(audio),
		"mime", mimeType,
	)

	return Handle{Name: result.File.Name, URI: result.File.URI, MIME: mimeType}, nil
}

// Poll reports the ingestion state of an uploaded file.
func (g *Gemini) Poll(ctx context.Context, h Handle) (JobState, error) {
	url := fmt.Sprintf("%s/v1beta/%s?key=%s", g.baseURL, h.Name, g.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return StateFailed, err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return StateFailed, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StateFailed, g.parseError(resp)
	}

	var file geminiFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return StateFailed, fmt.Errorf("decode poll response: %w", err)
	}

	switch file.State {
	case "ACTIVE":
		return StateReady, nil
	case "PROCESSING":
		return StateProcessing, nil
	default:
		return StateFailed, nil
	}
}

// Transcribe asks the model for a transcript of the uploaded audio.
func (g *Gemini) Transcribe(ctx context.Context, h Handle) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": transcribePrompt},
					{"file_data": map[string]string{
						"mime_type": h.MIME,
						"file_uri":  h.URI,
					}},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", g.parseError(resp)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response content")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// Release deletes the uploaded file resource.
func (g *Gemini) Release(ctx context.Context, h Handle) error {
	url := fmt.Sprintf("%s/v1beta/%s?key=%s", g.baseURL, h.Name, g.apiKey)

	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return g.parseError(resp)
	}

	g.logger.Debug("upload released", "file", h.Name)
	return nil
}

// parseError reads and parses an error response.
func (g *Gemini) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// Verify Gemini implements Service at compile time.
var _ Service = (*Gemini)(nil)
