package effector

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const sysfsRoot = "/sys/class/gpio"

// Sysfs drives pins through the kernel's sysfs GPIO interface. It exports
// pins on first use and unexports them on Close.
type Sysfs struct {
	mu       sync.Mutex
	root     string
	exported map[int]bool
}

// NewSysfs creates a sysfs pin driver.
func NewSysfs() *Sysfs {
	return &Sysfs{
		root:     sysfsRoot,
		exported: make(map[int]bool),
	}
}

// NewSysfsAt creates a driver rooted at an alternate path, used in tests.
func NewSysfsAt(root string) *Sysfs {
	return &Sysfs{
		root:     root,
		exported: make(map[int]bool),
	}
}

// Set drives one pin high or low, exporting it as an output first.
func (s *Sysfs) Set(pin int, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureExported(pin); err != nil {
		return err
	}

	value := "0"
	if high {
		value = "1"
	}
	path := filepath.Join(s.root, fmt.Sprintf("gpio%d", pin), "value")
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("effector: write %s: %w", path, err)
	}
	return nil
}

// ensureExported exports the pin and sets it as an output.
func (s *Sysfs) ensureExported(pin int) error {
	if s.exported[pin] {
		return nil
	}

	exportPath := filepath.Join(s.root, "export")
	pinDir := filepath.Join(s.root, fmt.Sprintf("gpio%d", pin))

	if _, err := os.Stat(pinDir); os.IsNotExist(err) {
		if err := os.WriteFile(exportPath, []byte(strconv.Itoa(pin)), 0o644); err != nil {
			return fmt.Errorf("effector: export pin %d: %w", pin, err)
		}
		// The kernel needs a moment to create the pin directory and fix
		// its permissions after export.
		time.Sleep(50 * time.Millisecond)
	}

	directionPath := filepath.Join(pinDir, "direction")
	if err := os.WriteFile(directionPath, []byte("out"), 0o644); err != nil {
		return fmt.Errorf("effector: set pin %d direction: %w", pin, err)
	}

	s.exported[pin] = true
	return nil
}

// Close unexports every pin this driver exported.
func (s *Sysfs) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unexportPath := filepath.Join(s.root, "unexport")
	var lastErr error
	for pin := range s.exported {
		if err := os.WriteFile(unexportPath, []byte(strconv.Itoa(pin)), 0o644); err != nil {
			lastErr = fmt.Errorf("effector: unexport pin %d: %w", pin, err)
		}
	}
	s.exported = make(map[int]bool)
	return lastErr
}

// Verify Sysfs implements Driver at compile time.
var _ Driver = (*Sysfs)(nil)
