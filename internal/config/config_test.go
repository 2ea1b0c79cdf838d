package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WATERSHED_HOST", "WATERSHED_OUTPUT", "WATERSHED_PROFILE", "LOG_LEVEL",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_REGION", "S3_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("WATERSHED_HOST", "http://master:8080/pump")
	t.Setenv("WATERSHED_OUTPUT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AWS_ACCESS_KEY_ID", "testkey")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "testsecret")
	t.Setenv("AWS_REGION", "us-east-1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://master:8080/pump", cfg.Host)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.HasS3Credentials())
	require.NotNil(t, cfg.S3Region)
	assert.Equal(t, "us-east-1", *cfg.S3Region)
	assert.Nil(t, cfg.S3Endpoint)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.Host)
	assert.Empty(t, cfg.LogLevel)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.False(t, cfg.HasS3Credentials())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_PartialS3Credentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "testkey")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AWS_SECRET_ACCESS_KEY")
}

func TestLoadFromEnv_UnknownLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "chatty")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "chatty")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# pump\nWATERSHED_HOST=\"http://from-dotenv/pump\"\nLOG_LEVEL=info\n"), 0o600))

	t.Setenv("WATERSHED_HOST", "")
	require.NoError(t, os.Unsetenv("WATERSHED_HOST"))
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "http://from-dotenv/pump", os.Getenv("WATERSHED_HOST"))
	assert.Equal(t, "error", os.Getenv("LOG_LEVEL"), "existing env vars take precedence")
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "key=value")
}
