// Package config provides configuration management for the triage
// command-line tool. It supports loading configuration from YAML files,
// a .env file, and TRIAGE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
	"github.com/otherjamesbrown/triage-cli/pkg/replies"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// Default configuration values.
const (
	DefaultProvider   = "gemini"
	DefaultLookback   = 24 * time.Hour
	DefaultMaxItems   = 50
	DefaultTimeout    = 60 * time.Second
	DefaultMaxReplies = 5
	DefaultSendDelay  = 2 * time.Second
	DefaultConfigDir  = ".triage"
	DefaultConfigFile = "config.yaml"
	DefaultStorePath  = "processed.json"
)

// ProviderConfig selects and tunes the text-generation service.
type ProviderConfig struct {
	// Name is the primary provider: "gemini" or "openai".
	Name string `yaml:"name"`

	// Fallback is an optional second provider tried when the primary's
	// client cannot be constructed.
	Fallback string `yaml:"fallback,omitempty"`

	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`

	// BaseURL overrides the provider endpoint, for proxies and compatible
	// self-hosted services.
	BaseURL string `yaml:"base_url,omitempty"`

	// Timeout bounds each generation call.
	Timeout time.Duration `yaml:"-"`

	// ChunkSize bounds items per consolidation call.
	ChunkSize int `yaml:"chunk_size,omitempty"`
}

// MailboxConfig controls fetching.
type MailboxConfig struct {
	// Source is "gmail" or "file".
	Source string `yaml:"source"`

	// Target filters fetched mail to one recipient address.
	Target string `yaml:"target,omitempty"`

	// InputFile is the blob to split when Source is "file".
	InputFile string `yaml:"input_file,omitempty"`

	// Lookback is how far back to fetch.
	Lookback time.Duration `yaml:"-"`

	// MaxItems caps one fetch.
	MaxItems int `yaml:"max_items,omitempty"`
}

// RepliesConfig controls the approval workflow and dispatch.
type RepliesConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Mode      replies.Mode  `yaml:"mode"`
	Threshold float64       `yaml:"threshold,omitempty"`
	MaxPerRun int           `yaml:"max_per_run,omitempty"`
	SendDelay time.Duration `yaml:"-"`
	DryRun    bool          `yaml:"dry_run,omitempty"`
}

// StoreConfig selects the dedup store backend.
type StoreConfig struct {
	// Backend is "file" or "redis".
	Backend string `yaml:"backend"`

	// Path is the JSON file location for the file backend.
	Path string `yaml:"path,omitempty"`

	// RedisAddr is host:port for the redis backend.
	RedisAddr string `yaml:"redis_addr,omitempty"`

	// RedisKey overrides the sorted-set key.
	RedisKey string `yaml:"redis_key,omitempty"`

	// MaxTracked is the dedup window size; older ids age out.
	MaxTracked int `yaml:"max_tracked,omitempty"`
}

// NotifyConfig selects report delivery channels. Stdout is always on.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url,omitempty"`
}

// ArchiveConfig enables the optional Postgres run archive.
type ArchiveConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	JSON  bool   `yaml:"json,omitempty"`
}

// Config is the complete triage CLI configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Mailbox  MailboxConfig  `yaml:"mailbox"`
	Replies  RepliesConfig  `yaml:"replies"`
	Store    StoreConfig    `yaml:"store"`
	Notify   NotifyConfig   `yaml:"notify"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:      DefaultProvider,
			Timeout:   DefaultTimeout,
			ChunkSize: triage.DefaultChunkSize,
		},
		Mailbox: MailboxConfig{
			Source:   "gmail",
			Lookback: DefaultLookback,
			MaxItems: DefaultMaxItems,
		},
		Replies: RepliesConfig{
			Enabled:   false,
			Mode:      replies.ModeInteractive,
			Threshold: 0.8,
			MaxPerRun: DefaultMaxReplies,
			SendDelay: DefaultSendDelay,
		},
		Store: StoreConfig{
			Backend: "file",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the configuration directory.
// Uses $TRIAGE_CONFIG_DIR if set, otherwise ~/.triage
func ConfigDir() (string, error) {
	if dir := os.Getenv("TRIAGE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path of the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration. Sources, later overriding earlier:
// 1. Default values
// 2. Config file (~/.triage/config.yaml or $TRIAGE_CONFIG_DIR/config.yaml)
// 3. .env file in the working directory, if present
// 4. TRIAGE_* environment variables
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// A missing .env is fine; it only exists in dev setups.
	_ = godotenv.Load()

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// fileConfig mirrors Config with durations as strings for YAML.
type fileConfig struct {
	Provider struct {
		ProviderConfig `yaml:",inline"`
		Timeout        string `yaml:"timeout,omitempty"`
	} `yaml:"provider"`
	Mailbox struct {
		MailboxConfig `yaml:",inline"`
		Lookback      string `yaml:"lookback,omitempty"`
	} `yaml:"mailbox"`
	Replies struct {
		RepliesConfig `yaml:",inline"`
		SendDelay     string `yaml:"send_delay,omitempty"`
	} `yaml:"replies"`
	Store   StoreConfig   `yaml:"store"`
	Notify  NotifyConfig  `yaml:"notify"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Unknown keys are rejected so a misspelled setting fails loudly
	// instead of silently leaving the default in place.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var fc fileConfig
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file: %w", err)
	}

	mergeProvider(&cfg.Provider, fc.Provider.ProviderConfig, fc.Provider.Timeout)
	mergeMailbox(&cfg.Mailbox, fc.Mailbox.MailboxConfig, fc.Mailbox.Lookback)
	mergeReplies(&cfg.Replies, fc.Replies.RepliesConfig, fc.Replies.SendDelay)
	mergeStore(&cfg.Store, fc.Store)
	if fc.Notify.SlackWebhookURL != "" {
		cfg.Notify.SlackWebhookURL = fc.Notify.SlackWebhookURL
	}
	if fc.Archive.DSN != "" {
		cfg.Archive.DSN = fc.Archive.DSN
	}
	if fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	cfg.Logging.JSON = cfg.Logging.JSON || fc.Logging.JSON

	return nil
}

func mergeProvider(dst *ProviderConfig, src ProviderConfig, timeout string) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Fallback != "" {
		dst.Fallback = src.Fallback
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.ChunkSize > 0 {
		dst.ChunkSize = src.ChunkSize
	}
	if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
		dst.Timeout = d
	}
}

func mergeMailbox(dst *MailboxConfig, src MailboxConfig, lookback string) {
	if src.Source != "" {
		dst.Source = src.Source
	}
	if src.Target != "" {
		dst.Target = src.Target
	}
	if src.InputFile != "" {
		dst.InputFile = src.InputFile
	}
	if src.MaxItems > 0 {
		dst.MaxItems = src.MaxItems
	}
	if d, err := time.ParseDuration(lookback); err == nil && d > 0 {
		dst.Lookback = d
	}
}

func mergeReplies(dst *RepliesConfig, src RepliesConfig, sendDelay string) {
	dst.Enabled = dst.Enabled || src.Enabled
	dst.DryRun = dst.DryRun || src.DryRun
	if src.Mode != "" {
		dst.Mode = src.Mode
	}
	if src.Threshold > 0 {
		dst.Threshold = src.Threshold
	}
	if src.MaxPerRun > 0 {
		dst.MaxPerRun = src.MaxPerRun
	}
	if d, err := time.ParseDuration(sendDelay); err == nil && d >= 0 {
		dst.SendDelay = d
	}
}

func mergeStore(dst *StoreConfig, src StoreConfig) {
	if src.Backend != "" {
		dst.Backend = src.Backend
	}
	if src.Path != "" {
		dst.Path = src.Path
	}
	if src.RedisAddr != "" {
		dst.RedisAddr = src.RedisAddr
	}
	if src.RedisKey != "" {
		dst.RedisKey = src.RedisKey
	}
	if src.MaxTracked > 0 {
		dst.MaxTracked = src.MaxTracked
	}
}

// loadFromEnv overlays TRIAGE_* environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TRIAGE_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("TRIAGE_PROVIDER_FALLBACK"); v != "" {
		cfg.Provider.Fallback = v
	}
	if v := os.Getenv("TRIAGE_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("TRIAGE_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("TRIAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Provider.Timeout = d
		}
	}
	if v := os.Getenv("TRIAGE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Provider.ChunkSize = n
		}
	}

	if v := os.Getenv("TRIAGE_SOURCE"); v != "" {
		cfg.Mailbox.Source = v
	}
	if v := os.Getenv("TRIAGE_TARGET"); v != "" {
		cfg.Mailbox.Target = v
	}
	if v := os.Getenv("TRIAGE_INPUT_FILE"); v != "" {
		cfg.Mailbox.InputFile = v
	}
	if v := os.Getenv("TRIAGE_LOOKBACK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Mailbox.Lookback = d
		}
	}
	if v := os.Getenv("TRIAGE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Mailbox.MaxItems = n
		}
	}

	if v := os.Getenv("TRIAGE_REPLIES_ENABLED"); v == "true" || v == "1" {
		cfg.Replies.Enabled = true
	}
	if v := os.Getenv("TRIAGE_REPLY_MODE"); v != "" {
		cfg.Replies.Mode = replies.Mode(v)
	}
	if v := os.Getenv("TRIAGE_REPLY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Replies.Threshold = f
		}
	}
	if v := os.Getenv("TRIAGE_MAX_REPLIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Replies.MaxPerRun = n
		}
	}
	if v := os.Getenv("TRIAGE_SEND_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Replies.SendDelay = d
		}
	}
	if v := os.Getenv("TRIAGE_DRY_RUN"); v == "true" || v == "1" {
		cfg.Replies.DryRun = true
	}

	if v := os.Getenv("TRIAGE_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("TRIAGE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TRIAGE_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("TRIAGE_SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notify.SlackWebhookURL = v
	}
	if v := os.Getenv("TRIAGE_ARCHIVE_DSN"); v != "" {
		cfg.Archive.DSN = v
	}
	if v := os.Getenv("TRIAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRIAGE_LOG_JSON"); v == "true" || v == "1" {
		cfg.Logging.JSON = true
	}
}

// StorePath resolves the dedup file path, defaulting to the config dir.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultStorePath), nil
}

// Validate checks that the configuration is usable. Validation failures are
// fatal at startup.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid provider %q (must be gemini or openai): %w",
			c.Provider.Name, triageerrors.ErrValidation)
	}

	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive: %w", triageerrors.ErrValidation)
	}
	if c.Provider.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive: %w", triageerrors.ErrValidation)
	}

	switch c.Mailbox.Source {
	case "gmail":
	case "file":
		if c.Mailbox.InputFile == "" {
			return fmt.Errorf("mailbox.input_file is required for the file source: %w",
				triageerrors.ErrValidation)
		}
	default:
		return fmt.Errorf("invalid mailbox source %q (must be gmail or file): %w",
			c.Mailbox.Source, triageerrors.ErrValidation)
	}

	if !validMode(c.Replies.Mode) {
		return fmt.Errorf("invalid reply mode %q (must be %s): %w",
			c.Replies.Mode, modeList(), triageerrors.ErrValidation)
	}
	if c.Replies.Threshold < 0 || c.Replies.Threshold > 1 {
		return fmt.Errorf("reply threshold must be in [0,1]: %w", triageerrors.ErrValidation)
	}

	switch c.Store.Backend {
	case "file":
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis backend: %w",
				triageerrors.ErrValidation)
		}
	default:
		return fmt.Errorf("invalid store backend %q (must be file or redis): %w",
			c.Store.Backend, triageerrors.ErrValidation)
	}

	return nil
}

func validMode(m replies.Mode) bool {
	for _, valid := range replies.ValidModes {
		if m == valid {
			return true
		}
	}
	return false
}

func modeList() string {
	parts := make([]string, len(replies.ValidModes))
	for i, m := range replies.ValidModes {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

// SaveConfig writes the configuration to the config file.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var fc fileConfig
	fc.Provider.ProviderConfig = cfg.Provider
	fc.Provider.Timeout = cfg.Provider.Timeout.String()
	fc.Mailbox.MailboxConfig = cfg.Mailbox
	fc.Mailbox.Lookback = cfg.Mailbox.Lookback.String()
	fc.Replies.RepliesConfig = cfg.Replies
	fc.Replies.SendDelay = cfg.Replies.SendDelay.String()
	fc.Store = cfg.Store
	fc.Notify = cfg.Notify
	fc.Archive = cfg.Archive
	fc.Logging = cfg.Logging

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
