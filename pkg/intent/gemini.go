package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.5-flash"
	defaultTemperature = 0.2
	defaultMaxTokens   = 512
)

// ErrNoAPIKey is returned when the completer API key is missing.
var ErrNoAPIKey = errors.New("intent: API key required")

// GeminiCompleter implements Completer over the Gemini generateContent API.
type GeminiCompleter struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// GeminiOption configures the completer.
type GeminiOption func(*GeminiCompleter)

// WithModel overrides the default model.
func WithModel(model string) GeminiOption {
	return func(g *GeminiCompleter) { g.model = model }
}

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(url string) GeminiOption {
	return func(g *GeminiCompleter) { g.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiCompleter) { g.http = c }
}

// NewGeminiCompleter creates a Gemini-backed completer.
func NewGeminiCompleter(apiKey string, opts ...GeminiOption) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	g := &GeminiCompleter{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: geminiBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Complete sends a single-shot prompt and returns the raw reply text.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     defaultTemperature,
			"maxOutputTokens": defaultMaxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
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

// parseError reads and parses an error response.
func (g *GeminiCompleter) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return fmt.Errorf("intent: API error %d: %s", resp.StatusCode, message)
}

// Verify GeminiCompleter implements Completer at compile time.
var _ Completer = (*GeminiCompleter)(nil)

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
