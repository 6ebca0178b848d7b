package playback

import (
	"context"
	"errors"
	"testing"
)

// stubBackend records calls and returns a fixed error.
type stubBackend struct {
	name   string
	err    error
	played [][]byte
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Play(ctx context.Context, audio []byte) error {
	s.played = append(s.played, audio)
	return s.err
}

func TestChainFirstBackendWins(t *testing.T) {
	first := &stubBackend{name: "first"}
	second := &stubBackend{name: "second"}

	chain, err := NewChain(nil, first, second)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	if err := chain.Play(context.Background(), []byte("mp3")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(first.played) != 1 {
		t.Errorf("first backend played %d times, want 1", len(first.played))
	}
	if len(second.played) != 0 {
		t.Errorf("second backend should not have been tried")
	}
}

func TestChainFallsThrough(t *testing.T) {
	first := &stubBackend{name: "first", err: errors.New("no audio device")}
	second := &stubBackend{name: "second"}

	chain, _ := NewChain(nil, first, second)
	if err := chain.Play(context.Background(), []byte("mp3")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(second.played) != 1 {
		t.Errorf("second backend played %d times, want 1", len(second.played))
	}
}

func TestChainAllFail(t *testing.T) {
	first := &stubBackend{name: "first", err: errors.New("no device")}
	second := &stubBackend{name: "second", err: errors.New("no player")}

	chain, _ := NewChain(nil, first, second)
	err := chain.Play(context.Background(), []byte("mp3"))
	if err == nil {
		t.Fatal("expected error when all backends fail")
	}
	if !errors.Is(err, second.err) {
		t.Errorf("error should wrap the last backend failure: %v", err)
	}
}

func TestChainRejectsEmptyAudio(t *testing.T) {
	backend := &stubBackend{name: "only"}
	chain, _ := NewChain(nil, backend)

	if err := chain.Play(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty audio")
	}
	if len(backend.played) != 0 {
		t.Error("backend must not be tried for empty audio")
	}
}

func TestChainRequiresBackend(t *testing.T) {
	if _, err := NewChain(nil); err == nil {
		t.Fatal("expected error for empty chain")
	}
}

func TestChainHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &stubBackend{name: "only"}
	chain, _ := NewChain(nil, backend)

	if err := chain.Play(ctx, []byte("mp3")); !errors.Is(err, context.Canceled) {
		t.Errorf("Play with cancelled context = %v, want context.Canceled", err)
	}
	if len(backend.played) != 0 {
		t.Error("backend must not run after cancellation")
	}
}
