package effector

import (
	"log/slog"
	"sync"
)

// Sim is an in-memory driver for development machines and tests.
// It records every write so tests can assert pin sequences.
type Sim struct {
	mu     sync.Mutex
	levels map[int]bool
	writes []SimWrite
	logger *slog.Logger
}

// SimWrite records one Set call.
type SimWrite struct {
	Pin  int
	High bool
}

// NewSim creates a simulated pin driver.
func NewSim(logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		levels: make(map[int]bool),
		logger: logger.With("component", "effector.sim"),
	}
}

// Set records the pin level.
func (s *Sim) Set(pin int, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[pin] = high
	s.writes = append(s.writes, SimWrite{Pin: pin, High: high})
	s.logger.Debug("pin write", "pin", pin, "high", high)
	return nil
}

// Close is a no-op for the simulator.
func (s *Sim) Close() error {
	return nil
}

// Level returns the current level of a pin.
func (s *Sim) Level(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[pin]
}

// Writes returns a copy of all recorded writes.
func (s *Sim) Writes() []SimWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimWrite, len(s.writes))
	copy(out, s.writes)
	return out
}

// HighPins returns the pins currently driven high.
func (s *Sim) HighPins() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pins []int
	for pin, high := range s.levels {
		if high {
			pins = append(pins, pin)
		}
	}
	return pins
}

// Verify Sim implements Driver at compile time.
var _ Driver = (*Sim)(nil)
