package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// speaker.Init may only run once per process sample rate, so the backend
// initializes lazily and remembers the rate it picked.
var (
	speakerOnce sync.Once
	speakerErr  error
	speakerRate beep.SampleRate
)

// Beep plays MP3 audio through the beep speaker package.
type Beep struct{}

// NewBeep creates the beep playback backend.
func NewBeep() *Beep {
	return &Beep{}
}

// Name identifies the backend in logs.
func (b *Beep) Name() string { return "beep" }

// Play decodes the MP3 buffer and plays it to completion.
func (b *Beep) Play(ctx context.Context, audio []byte) error {
	streamer, format, err := mp3.Decode(nopSeekCloser{bytes.NewReader(audio)})
	if err != nil {
		return fmt.Errorf("beep: decode mp3: %w", err)
	}
	defer streamer.Close()

	speakerOnce.Do(func() {
		speakerRate = format.SampleRate
		speakerErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return fmt.Errorf("beep: speaker init: %w", speakerErr)
	}

	var stream beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		stream = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// nopSeekCloser adapts a bytes.Reader for mp3.Decode, which wants a
// ReadCloser and seeks when it can.
type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

var _ io.ReadSeeker = nopSeekCloser{}

// Verify Beep implements Backend at compile time.
var _ Backend = (*Beep)(nil)
