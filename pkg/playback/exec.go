package playback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// playerCommands lists command line players in preference order with the
// flags that keep them quiet and non-interactive.
var playerCommands = [][]string{
	{"mpg123", "-q"},
	{"mplayer", "-quiet"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"aplay", "-q"},
}

// Exec plays audio by shelling out to an installed command line player.
// It is the last resort on Pis where no Go audio backend works.
type Exec struct{}

// NewExec creates the exec playback backend.
func NewExec() *Exec {
	return &Exec{}
}

// Name identifies the backend in logs.
func (e *Exec) Name() string { return "exec" }

// Play writes the audio to a temp file and runs the first available player.
func (e *Exec) Play(ctx context.Context, audio []byte) error {
	f, err := os.CreateTemp("", "rover-speech-*.mp3")
	if err != nil {
		return fmt.Errorf("exec: create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("exec: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("exec: close temp file: %w", err)
	}

	var lastErr error
	for _, cmdline := range playerCommands {
		if _, err := exec.LookPath(cmdline[0]); err != nil {
			continue
		}

		args := append(append([]string{}, cmdline[1:]...), path)
		cmd := exec.CommandContext(ctx, cmdline[0], args...)
		if err := cmd.Run(); err != nil {
			lastErr = fmt.Errorf("exec: %s: %w", cmdline[0], err)
			continue
		}
		return nil
	}

	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("exec: no audio player installed")
}

// Verify Exec implements Backend at compile time.
var _ Backend = (*Exec)(nil)
