package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rover/internal/httpc"
	"github.com/teslashibe/go-rover/pkg/queue"
)

// Fetcher is the agent's view of the command queue.
type Fetcher interface {
	// FetchPending returns undelivered entries, oldest first.
	FetchPending(ctx context.Context) ([]queue.Entry, error)

	// Ack marks one entry processed. Acking an entry the server no longer
	// knows returns an error; the agent treats that as already settled.
	Ack(ctx context.Context, id uuid.UUID) error

	// Fail marks one entry terminally failed.
	Fail(ctx context.Context, id uuid.UUID, reason string) error
}

// HTTPFetcher polls a rover command server over its REST API.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher against the given server base URL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.Client,
	}
}

// FetchPending calls GET /api/commands.
func (f *HTTPFetcher) FetchPending(ctx context.Context) ([]queue.Entry, error) {
	url := f.baseURL + "/api/commands"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("agent: create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: fetch pending: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: fetch pending: server returned %d", resp.StatusCode)
	}

	var payload struct {
		Commands []queue.Entry `json:"commands"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("agent: decode pending: %w", err)
	}
	return payload.Commands, nil
}

// Ack calls POST /api/commands/:id/ack.
func (f *HTTPFetcher) Ack(ctx context.Context, id uuid.UUID) error {
	url := fmt.Sprintf("%s/api/commands/%s/ack", f.baseURL, id)
	return f.post(ctx, url, nil)
}

// Fail calls POST /api/commands/:id/fail.
func (f *HTTPFetcher) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	url := fmt.Sprintf("%s/api/commands/%s/fail", f.baseURL, id)
	body, _ := json.Marshal(map[string]string{"reason": reason})
	return f.post(ctx, url, body)
}

func (f *HTTPFetcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("agent: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("agent: post %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent: post %s: server returned %d", url, resp.StatusCode)
	}
	return nil
}

// Verify HTTPFetcher implements Fetcher at compile time.
var _ Fetcher = (*HTTPFetcher)(nil)

// LocalFetcher adapts an in-process queue, used when the agent runs inside
// the server binary.
type LocalFetcher struct {
	Queue *queue.Queue
}

// FetchPending returns the queue's pending snapshot.
func (l *LocalFetcher) FetchPending(ctx context.Context) ([]queue.Entry, error) {
	return l.Queue.ListPending(), nil
}

// Ack marks the entry processed.
func (l *LocalFetcher) Ack(ctx context.Context, id uuid.UUID) error {
	if !l.Queue.MarkProcessed(id) {
		return fmt.Errorf("agent: command %s not found", id)
	}
	return nil
}

// Fail marks the entry terminally failed.
func (l *LocalFetcher) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	if !l.Queue.MarkFailed(id, reason) {
		return fmt.Errorf("agent: command %s not found", id)
	}
	return nil
}

// Verify LocalFetcher implements Fetcher at compile time.
var _ Fetcher = (*LocalFetcher)(nil)
