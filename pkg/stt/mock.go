package stt

import (
	"context"
	"sync"
)

// MockService implements Service for testing.
// All methods can be customized via function fields.
type MockService struct {
	// SubmitFunc is called when Submit is invoked.
	// If nil, returns a fixed handle.
	SubmitFunc func(ctx context.Context, audio []byte, mimeType string) (Handle, error)

	// PollFunc is called when Poll is invoked.
	// If nil, returns StateReady.
	PollFunc func(ctx context.Context, h Handle) (JobState, error)

	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns Text.
	TranscribeFunc func(ctx context.Context, h Handle) (string, error)

	// ReleaseFunc is called when Release is invoked.
	// If nil, returns nil.
	ReleaseFunc func(ctx context.Context, h Handle) error

	// Text is the default transcript returned when TranscribeFunc is nil.
	Text string

	mu       sync.Mutex
	released []Handle
	submits  int
}

// Submit calls SubmitFunc or returns a fixed handle.
func (m *MockService) Submit(ctx context.Context, audio []byte, mimeType string) (Handle, error) {
	m.mu.Lock()
	m.submits++
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, audio, mimeType)
	}
	return Handle{Name: "files/mock", URI: "mock://audio", MIME: mimeType}, nil
}

// Poll calls PollFunc or reports the job ready.
func (m *MockService) Poll(ctx context.Context, h Handle) (JobState, error) {
	if m.PollFunc != nil {
		return m.PollFunc(ctx, h)
	}
	return StateReady, nil
}

// Transcribe calls TranscribeFunc or returns Text.
func (m *MockService) Transcribe(ctx context.Context, h Handle) (string, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, h)
	}
	return m.Text, nil
}

// Release records the handle and calls ReleaseFunc if set.
func (m *MockService) Release(ctx context.Context, h Handle) error {
	m.mu.Lock()
	m.released = append(m.released, h)
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, h)
	}
	return nil
}

// Released returns the handles released so far.
func (m *MockService) Released() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Handle, len(m.released))
	copy(out, m.released)
	return out
}

// SubmitCount returns the number of Submit calls.
func (m *MockService) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submits
}

// Verify MockService implements Service at compile time.
var _ Service = (*MockService)(nil)
