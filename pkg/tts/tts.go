// Package tts synthesizes spoken responses for the rover.
//
// Providers implement the Provider interface so the speech path can swap
// backends without changing caller code. The agent typically wraps providers
// in a Chain so a failed synthesis falls through to the next backend.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Moving forward now.")
//	// result.Audio contains MP3 bytes ready for playback
package tts

import (
	"context"
	"time"
)

// Provider defines the speech synthesis interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// MIME is the audio content type (e.g. audio/mpeg).
	MIME string

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64

	// Duration is the estimated playback duration, zero if unknown.
	Duration time.Duration
}

// Encoding names an ElevenLabs output format.
type Encoding string

const (
	// EncodingMP3 is MP3 at 44.1kHz 128kbps, the playback chain's
	// preferred input.
	EncodingMP3 Encoding = "mp3_44100_128"

	// EncodingPCM24 is raw 24kHz mono PCM16.
	EncodingPCM24 Encoding = "pcm_24000"
)

// MIME returns the content type for the encoding.
func (e Encoding) MIME() string {
	switch e {
	case EncodingPCM24:
		return "audio/pcm"
	default:
		return "audio/mpeg"
	}
}

// VoiceSettings controls voice characteristics.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	Stability float64

	// SimilarityBoost controls how closely the voice matches the
	// original sample (0.0-1.0).
	SimilarityBoost float64
}

// DefaultVoiceSettings returns the settings used for rover responses.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.5,
	}
}
