package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors for input validation.
var (
	// ErrEmptyAudio is returned for zero-byte audio input.
	ErrEmptyAudio = errors.New("stt: audio file is empty")

	// ErrAudioTooLarge is returned when the audio exceeds MaxAudioBytes.
	ErrAudioTooLarge = errors.New("stt: audio file too large")

	// ErrUnsupportedFormat is returned for extensions outside the allow-list.
	ErrUnsupportedFormat = errors.New("stt: unsupported audio format")

	// ErrNoAPIKey is returned when the service API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")
)

// APIError represents an error response from the speech-to-text API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stt: API error %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true for HTTP 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
