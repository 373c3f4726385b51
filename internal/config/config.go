package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// APIBaseURL is the question-bank backend, without the /api suffix.
	APIBaseURL      string
	UpstreamTimeout time.Duration

	// RedisURL holds console sessions; empty keeps them in process memory.
	RedisURL string
	// SessionDir is where qbctl keeps its persisted session.
	SessionDir string

	PageSize         int
	ListRetryBackoff time.Duration
	LoginRatePerMin  int

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8090"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "pretty"),
		APIBaseURL:       strings.TrimRight(getEnv("QBANK_API_URL", "http://localhost:8080"), "/"),
		UpstreamTimeout:  time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 15)) * time.Second,
		RedisURL:         getEnv("REDIS_URL", ""),
		SessionDir:       getEnv("SESSION_DIR", defaultSessionDir()),
		PageSize:         getEnvInt("PAGE_SIZE", 10),
		ListRetryBackoff: time.Duration(getEnvInt("LIST_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
		LoginRatePerMin:  getEnvInt("LOGIN_RATE_PER_MINUTE", 30),
		AllowedOrigins:   parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
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

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".qbctl"
	}
	return filepath.Join(dir, "qbctl")
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
