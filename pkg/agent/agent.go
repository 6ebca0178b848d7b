// Package agent polls the command server and actuates the rover.
//
// The loop is at-least-once: an entry is executed, then acknowledged. If the
// agent dies between the two, the entry is redelivered and executed again.
// Movement commands are idempotent pin writes, so re-execution is safe.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rover/pkg/action"
	"github.com/teslashibe/go-rover/pkg/playback"
	"github.com/teslashibe/go-rover/pkg/queue"
	"github.com/teslashibe/go-rover/pkg/tts"
)

// Defaults for the poll loop.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxBackoff   = 30 * time.Second
	DefaultMaxAttempts  = 5
)

// Executor applies a movement action to hardware.
type Executor interface {
	Apply(ctx context.Context, code action.Code) error
}

// Agent polls for pending commands and executes them in order.
type Agent struct {
	fetcher  Fetcher
	executor Executor
	voice    tts.Provider
	player   playback.Backend
	logger   *slog.Logger

	pollInterval time.Duration
	maxBackoff   time.Duration
	maxAttempts  int

	attempts map[uuid.UUID]int
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithVoice enables spoken responses through the given provider and player.
func WithVoice(voice tts.Provider, player playback.Backend) AgentOption {
	return func(a *Agent) {
		a.voice = voice
		a.player = player
	}
}

// WithPollInterval sets the idle poll interval.
func WithPollInterval(d time.Duration) AgentOption {
	return func(a *Agent) {
		a.pollInterval = d
	}
}

// WithMaxAttempts sets how many executions are tried before an entry is
// reported failed. Zero disables the cap.
func WithMaxAttempts(n int) AgentOption {
	return func(a *Agent) {
		a.maxAttempts = n
	}
}

// WithAgentLogger sets the structured logger.
func WithAgentLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) {
		a.logger = logger.With("component", "agent")
	}
}

// New creates an agent over a fetcher and executor.
func New(fetcher Fetcher, executor Executor, opts ...AgentOption) *Agent {
	a := &Agent{
		fetcher:      fetcher,
		executor:     executor,
		logger:       slog.Default().With("component", "agent"),
		pollInterval: DefaultPollInterval,
		maxBackoff:   DefaultMaxBackoff,
		maxAttempts:  DefaultMaxAttempts,
		attempts:     make(map[uuid.UUID]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run polls until the context is cancelled. Fetch errors back off
// exponentially up to maxBackoff; a successful fetch resets the interval.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent started", "poll_interval", a.pollInterval)

	interval := a.pollInterval
	for {
		entries, err := a.fetcher.FetchPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("fetch failed, backing off",
				"error", err,
				"next_poll", interval,
			)
			if !sleep(ctx, interval) {
				return ctx.Err()
			}
			interval = interval * 2
			if interval > a.maxBackoff {
				interval = a.maxBackoff
			}
			continue
		}
		interval = a.pollInterval

		for _, entry := range entries {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.process(ctx, entry)
		}

		if !sleep(ctx, interval) {
			return ctx.Err()
		}
	}
}

// process executes one entry and settles it with the server.
func (a *Agent) process(ctx context.Context, entry queue.Entry) {
	logger := a.logger.With("id", entry.ID, "action", int(entry.Action), "kind", string(entry.Kind))

	if entry.Kind == action.KindCommand && entry.Action.IsCommand() {
		if err := a.executor.Apply(ctx, entry.Action); err != nil {
			a.attempts[entry.ID]++
			n := a.attempts[entry.ID]
			logger.Error("execution failed", "error", err, "attempt", n)

			if a.maxAttempts > 0 && n >= a.maxAttempts {
				if ferr := a.fetcher.Fail(ctx, entry.ID, err.Error()); ferr != nil {
					logger.Error("failed to report terminal failure", "error", ferr)
					return
				}
				delete(a.attempts, entry.ID)
				logger.Warn("command abandoned after repeated failures", "attempts", n)
			}
			return
		}
	}

	// Speech failures never block acknowledgment.
	a.speak(ctx, entry.SpokenResponse)

	if err := a.fetcher.Ack(ctx, entry.ID); err != nil {
		logger.Warn("ack failed, entry will be redelivered", "error", err)
		return
	}
	delete(a.attempts, entry.ID)
	logger.Info("command processed")
}

// speak synthesizes and plays the response, logging failures.
func (a *Agent) speak(ctx context.Context, text string) {
	if a.voice == nil || a.player == nil || text == "" {
		return
	}

	result, err := a.voice.Synthesize(ctx, text)
	if err != nil {
		a.logger.Warn("speech synthesis failed", "error", err)
		return
	}
	if err := a.player.Play(ctx, result.Audio); err != nil {
		a.logger.Warn("speech playback failed", "error", err)
	}
}

// sleep waits for d or context cancellation, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
