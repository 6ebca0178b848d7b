// Package effector drives the rover's motor control pins.
//
// A Bank maps action codes to GPIO pins and applies them through a Driver.
// The Sysfs driver talks to real hardware through /sys/class/gpio; the Sim
// driver records pin writes for development and tests.
package effector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/pkg/action"
)

// Driver writes digital levels to output pins.
type Driver interface {
	// Set drives one pin high or low.
	Set(pin int, high bool) error

	// Close releases any pins the driver claimed.
	Close() error
}

// DefaultPins maps movement action codes to BCM pin numbers on the rover's
// motor controller.
var DefaultPins = map[action.Code]int{
	action.CodeForward:  17,
	action.CodeBackward: 18,
	action.CodeLeft:     23,
	action.CodeRight:    27,
}

// Mode selects how a pin behaves after Apply.
type Mode int

const (
	// Latch leaves the pin high until the next Apply or AllOff. Movement
	// continues until another command arrives.
	Latch Mode = iota

	// Pulse raises the pin for a fixed duration and drops it. Each command
	// produces one bounded movement.
	Pulse
)

// DefaultPulse is how long a pulsed pin stays high.
const DefaultPulse = 500 * time.Millisecond

// Bank applies action codes to a set of motor pins.
type Bank struct {
	mu       sync.Mutex
	driver   Driver
	pins     map[action.Code]int
	mode     Mode
	pulse    time.Duration
	lastCode action.Code
}

// BankOption configures a Bank.
type BankOption func(*Bank)

// WithPins overrides the default action-to-pin mapping.
func WithPins(pins map[action.Code]int) BankOption {
	return func(b *Bank) {
		b.pins = pins
	}
}

// WithMode sets latch or pulse behavior.
func WithMode(mode Mode) BankOption {
	return func(b *Bank) {
		b.mode = mode
	}
}

// WithPulse sets the pulse duration for Pulse mode.
func WithPulse(d time.Duration) BankOption {
	return func(b *Bank) {
		b.pulse = d
	}
}

// NewBank creates a Bank over the given driver.
func NewBank(driver Driver, opts ...BankOption) *Bank {
	b := &Bank{
		driver: driver,
		pins:   DefaultPins,
		mode:   Latch,
		pulse:  DefaultPulse,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Apply drives the pins for one action code. All other pins drop first so
// two movement pins are never high at once. CodeNone lowers everything.
func (b *Bank) Apply(ctx context.Context, code action.Code) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.allOffLocked(); err != nil {
		return err
	}
	b.lastCode = action.CodeNone

	pin, ok := b.pins[code]
	if !ok {
		if code == action.CodeNone {
			return nil
		}
		return fmt.Errorf("effector: no pin mapped for action %d", int(code))
	}

	if err := b.driver.Set(pin, true); err != nil {
		return fmt.Errorf("effector: raise pin %d: %w", pin, err)
	}
	b.lastCode = code

	if b.mode == Latch {
		return nil
	}

	// Pulse mode completes the deactivation even when ctx is cancelled,
	// otherwise a motor could stay running through shutdown.
	select {
	case <-time.After(b.pulse):
	case <-ctx.Done():
	}
	if err := b.driver.Set(pin, false); err != nil {
		return fmt.Errorf("effector: lower pin %d: %w", pin, err)
	}
	b.lastCode = action.CodeNone
	return ctx.Err()
}

// AllOff lowers every mapped pin.
func (b *Bank) AllOff() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCode = action.CodeNone
	return b.allOffLocked()
}

func (b *Bank) allOffLocked() error {
	var lastErr error
	for _, pin := range b.pins {
		if err := b.driver.Set(pin, false); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Active returns the currently latched action code.
func (b *Bank) Active() action.Code {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCode
}

// Close lowers all pins and releases the driver.
func (b *Bank) Close() error {
	offErr := b.AllOff()
	if err := b.driver.Close(); err != nil {
		return err
	}
	return offErr
}
