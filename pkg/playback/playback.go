// Package playback plays synthesized speech on the rover's speaker.
//
// Several backends are provided because audio output on a Pi is unreliable:
// the beep library needs a working speaker device, oto needs ALSA headers at
// build time, and the exec backend shells out to whatever command line player
// is installed. The agent wires them into a Chain and the first one that
// works wins. Playback failure is never fatal to command execution.
package playback

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend plays a complete audio buffer and blocks until done.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Play decodes and plays the audio buffer. It returns once playback
	// finishes or the context is cancelled.
	Play(ctx context.Context, audio []byte) error
}

// Chain tries each backend in order until one plays the audio.
type Chain struct {
	backends []Backend
	logger   *slog.Logger
}

// NewChain creates a playback chain. At least one backend is required.
func NewChain(logger *slog.Logger, backends ...Backend) (*Chain, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("playback: no backends provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		backends: backends,
		logger:   logger.With("component", "playback.chain"),
	}, nil
}

// Name identifies the chain in logs.
func (c *Chain) Name() string { return "chain" }

// Play tries each backend until one succeeds.
func (c *Chain) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("playback: empty audio buffer")
	}

	var lastErr error
	for _, b := range c.backends {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := b.Play(ctx, audio)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("backend failed, trying next",
			"backend", b.Name(),
			"error", err,
		)
	}

	return fmt.Errorf("playback: all %d backends failed: %w", len(c.backends), lastErr)
}

// Verify Chain implements Backend at compile time.
var _ Backend = (*Chain)(nil)
