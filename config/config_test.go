package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
	"github.com/otherjamesbrown/triage-cli/pkg/replies"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "gemini", cfg.Provider.Name)
	assert.Equal(t, replies.ModeInteractive, cfg.Replies.Mode)
	assert.False(t, cfg.Replies.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider.Name = "bard" }},
		{"zero timeout", func(c *Config) { c.Provider.Timeout = 0 }},
		{"zero chunk size", func(c *Config) { c.Provider.ChunkSize = 0 }},
		{"unknown source", func(c *Config) { c.Mailbox.Source = "imap" }},
		{"file source without input", func(c *Config) { c.Mailbox.Source = "file" }},
		{"unknown reply mode", func(c *Config) { c.Replies.Mode = "bulk" }},
		{"threshold above one", func(c *Config) { c.Replies.Threshold = 1.5 }},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "dynamo" }},
		{"redis backend without addr", func(c *Config) { c.Store.Backend = "redis" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, triageerrors.IsValidation(err))
		})
	}
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	t.Setenv("TRIAGE_CONFIG_DIR", t.TempDir())
	t.Setenv("TRIAGE_PROVIDER", "openai")
	t.Setenv("TRIAGE_MODEL", "gpt-4o")
	t.Setenv("TRIAGE_LOOKBACK", "48h")
	t.Setenv("TRIAGE_REPLIES_ENABLED", "true")
	t.Setenv("TRIAGE_REPLY_MODE", "threshold")
	t.Setenv("TRIAGE_REPLY_THRESHOLD", "0.9")
	t.Setenv("TRIAGE_MAX_REPLIES", "3")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
	assert.Equal(t, 48*time.Hour, cfg.Mailbox.Lookback)
	assert.True(t, cfg.Replies.Enabled)
	assert.Equal(t, replies.ModeThreshold, cfg.Replies.Mode)
	assert.InDelta(t, 0.9, cfg.Replies.Threshold, 0.001)
	assert.Equal(t, 3, cfg.Replies.MaxPerRun)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRIAGE_CONFIG_DIR", dir)

	yaml := `
provider:
  name: openai
  model: gpt-4o-mini
  timeout: 90s
  chunk_size: 10
mailbox:
  source: file
  input_file: feedback.txt
  lookback: 72h
replies:
  enabled: true
  mode: auto
  max_per_run: 2
  send_delay: 500ms
store:
  backend: redis
  redis_addr: localhost:6379
logging:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(yaml), 0o600))

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, 90*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 10, cfg.Provider.ChunkSize)
	assert.Equal(t, "file", cfg.Mailbox.Source)
	assert.Equal(t, "feedback.txt", cfg.Mailbox.InputFile)
	assert.Equal(t, 72*time.Hour, cfg.Mailbox.Lookback)
	assert.True(t, cfg.Replies.Enabled)
	assert.Equal(t, replies.ModeAuto, cfg.Replies.Mode)
	assert.Equal(t, 2, cfg.Replies.MaxPerRun)
	assert.Equal(t, 500*time.Millisecond, cfg.Replies.SendDelay)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRIAGE_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile),
		[]byte("provider:\n  name: gemini\n"), 0o600))
	t.Setenv("TRIAGE_PROVIDER", "openai")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider.Name)
}

func TestLoadConfigInvalidIsFatal(t *testing.T) {
	t.Setenv("TRIAGE_CONFIG_DIR", t.TempDir())
	t.Setenv("TRIAGE_REPLY_MODE", "approve-all")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.True(t, triageerrors.IsValidation(err))
}

func TestSaveAndReloadConfig(t *testing.T) {
	t.Setenv("TRIAGE_CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.Provider.Name = "openai"
	cfg.Mailbox.Target = "support@corp.example"
	cfg.Replies.Enabled = true
	cfg.Replies.Mode = replies.ModeThreshold

	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.Provider.Name)
	assert.Equal(t, "support@corp.example", loaded.Mailbox.Target)
	assert.True(t, loaded.Replies.Enabled)
	assert.Equal(t, replies.ModeThreshold, loaded.Replies.Mode)
}

func TestStorePathDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRIAGE_CONFIG_DIR", dir)

	cfg := DefaultConfig()
	path, err := cfg.StorePath()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultStorePath), path)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRIAGE_CONFIG_DIR", dir)

	// "thresold" is a typo for "threshold"; it must fail the load rather
	// than silently leave the default in place.
	bad := "replies:\n  enabled: true\n  thresold: 0.9\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(bad), 0o600))

	_, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresold")
}
