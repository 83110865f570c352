// Package config provides environment configuration helpers for voxrelay.
package config

import (
	"os"
	"strconv"
)

// Defaults for the relay service.
const (
	DefaultPort           = 8000
	DefaultMediaDir       = "media"
	DefaultChunkThreshold = 15
)

// Env returns the value of key, or fallback if unset or empty.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvInt returns the integer value of key, or fallback if unset or invalid.
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

// EnvBool returns the boolean value of key, or fallback if unset or invalid.
func EnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Port returns the HTTP listen port from PORT.
func Port() int {
	return EnvInt("PORT", DefaultPort)
}

// RedisAddr returns the Redis address from REDIS_ADDR.
// Empty means run without durable storage (in-memory store).
func RedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

// RedisUsername returns the Redis username from REDIS_USERNAME.
func RedisUsername() string {
	return os.Getenv("REDIS_USERNAME")
}

// RedisPassword returns the Redis password from REDIS_PASSWORD.
func RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

// GeminiAPIKey returns the Gemini API key from GEMINI_API_KEY.
func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// CartesiaAPIKey returns the Cartesia API key from CARTESIA_API_KEY.
func CartesiaAPIKey() string {
	return os.Getenv("CARTESIA_API_KEY")
}

// CartesiaVoiceID returns the Cartesia voice ID from CARTESIA_VOICE_ID.
func CartesiaVoiceID() string {
	return os.Getenv("CARTESIA_VOICE_ID")
}

// MediaDir returns the directory for finalized audio artifacts.
func MediaDir() string {
	return Env("MEDIA_DIR", DefaultMediaDir)
}

// ChunkThreshold returns the TTS frame merge threshold.
func ChunkThreshold() int {
	return EnvInt("TTS_CHUNK_THRESHOLD", DefaultChunkThreshold)
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel() string {
	return Env("LOG_LEVEL", "info")
}

// PromptScript returns the name of a stored prompt script to load
// at startup, from PROMPT_SCRIPT. Empty means use the built-in prompt.
func PromptScript() string {
	return os.Getenv("PROMPT_SCRIPT")
}
