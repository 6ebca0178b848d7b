package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto"
)

// Oto plays MP3 audio by decoding with go-mp3 and writing PCM to an oto
// player. Used when the beep speaker cannot claim the output device.
type Oto struct{}

// NewOto creates the oto playback backend.
func NewOto() *Oto {
	return &Oto{}
}

// Name identifies the backend in logs.
func (o *Oto) Name() string { return "oto" }

// Play decodes the MP3 buffer and streams PCM to the audio device.
func (o *Oto) Play(ctx context.Context, audio []byte) error {
	dec, err := gomp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return fmt.Errorf("oto: decode mp3: %w", err)
	}

	// go-mp3 always emits 16-bit stereo PCM.
	otoCtx, err := oto.NewContext(dec.SampleRate(), 2, 2, 8192)
	if err != nil {
		return fmt.Errorf("oto: open audio context: %w", err)
	}
	defer otoCtx.Close()

	player := otoCtx.NewPlayer()
	defer player.Close()

	buf := make([]byte, 8192)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := dec.Read(buf)
		if n > 0 {
			if _, werr := player.Write(buf[:n]); werr != nil {
				return fmt.Errorf("oto: write pcm: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("oto: read pcm: %w", err)
		}
	}
}

// Verify Oto implements Backend at compile time.
var _ Backend = (*Oto)(nil)
