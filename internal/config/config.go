// Package config provides environment-based configuration for the go-rover
// binaries. Values come from the process environment, optionally seeded from
// a .env file in the working directory.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults shared by the server and the agent.
const (
	DefaultListenAddr   = ":5000"
	DefaultServerURL    = "http://localhost:5000"
	DefaultUploadDir    = "uploads"
	DefaultPollInterval = 2 * time.Second
)

// LoadDotenv loads a .env file from the working directory if present.
// Missing files are not an error; explicit environment always wins.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Env returns the value of key, or fallback when unset or empty.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvInt returns the integer value of key, or fallback when unset or invalid.
func EnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// EnvDuration returns the duration value of key (e.g. "2s", "500ms"),
// or fallback when unset or invalid.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// GeminiKey returns the Gemini API key.
func GeminiKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// ElevenLabsKey returns the ElevenLabs API key.
func ElevenLabsKey() string {
	return os.Getenv("ELEVENLABS_API_KEY")
}

// ServerURL returns the command server URL the agent should poll.
func ServerURL() string {
	return Env("ROVER_SERVER_URL", DefaultServerURL)
}
