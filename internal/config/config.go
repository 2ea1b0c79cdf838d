// Package config handles CLI configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds settings taken from the process environment. Values set here
// sit between command-line flags and profile values in precedence.
type Config struct {
	Host     string // WATERSHED_HOST: Pump base URL
	Output   string // WATERSHED_OUTPUT: text or json
	Profile  string // WATERSHED_PROFILE: profile name in the user config
	LogLevel string // LOG_LEVEL: debug, info, warn, error; empty means unset

	// S3 fields are optional, nil when not configured.
	S3KeyID        *string // AWS_ACCESS_KEY_ID
	S3Secret       *string // AWS_SECRET_ACCESS_KEY
	S3SessionToken *string // AWS_SESSION_TOKEN
	S3Region       *string // AWS_REGION
	S3Endpoint     *string // S3_ENDPOINT, for S3-compatible stores

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// ValidLogLevel reports whether level is one SlogLevel understands.
func ValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// HasS3Credentials returns true if a static key pair is set.
func (c *Config) HasS3Credentials() bool {
	return c.S3KeyID != nil && c.S3Secret != nil
}

// LoadFromEnv loads configuration from environment variables.
// S3 variables are optional; only upload-resources needs them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:     strings.TrimSpace(os.Getenv("WATERSHED_HOST")),
		Output:   strings.TrimSpace(os.Getenv("WATERSHED_OUTPUT")),
		Profile:  strings.TrimSpace(os.Getenv("WATERSHED_PROFILE")),
		LogLevel: strings.TrimSpace(os.Getenv("LOG_LEVEL")),
	}

	cfg.S3KeyID = optionalEnv("AWS_ACCESS_KEY_ID")
	cfg.S3Secret = optionalEnv("AWS_SECRET_ACCESS_KEY")
	cfg.S3SessionToken = optionalEnv("AWS_SESSION_TOKEN")
	cfg.S3Region = optionalEnv("AWS_REGION")
	cfg.S3Endpoint = optionalEnv("S3_ENDPOINT")

	if (cfg.S3KeyID == nil) != (cfg.S3Secret == nil) {
		return nil, fmt.Errorf("both AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}

	if cfg.LogLevel != "" && !ValidLogLevel(cfg.LogLevel) {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown LOG_LEVEL %q, using warn", cfg.LogLevel))
		cfg.LogLevel = "warn"
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func optionalEnv(key string) *string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	return &v
}
