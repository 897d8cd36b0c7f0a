package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the menusel configuration.
type Config struct {
	Debug   bool          `yaml:"debug"` // Decorate the chooser's border label
	Chooser ChooserConfig `yaml:"chooser"`
	Cache   CacheConfig   `yaml:"cache"`
	Preview PreviewConfig `yaml:"preview"`
	Log     LogConfig     `yaml:"log"`
}

// ChooserConfig selects and tunes the chooser backend.
type ChooserConfig struct {
	Backend     string   `yaml:"backend"`      // auto, fzf or builtin
	FzfPath     string   `yaml:"fzf_path"`     // fzf executable (empty = look up on PATH)
	ExtraArgs   []string `yaml:"extra_args"`   // Appended to the fzf command line
	CancelCodes []int    `yaml:"cancel_codes"` // Exit codes meaning "nothing chosen"
}

// CacheConfig holds command-result cache settings.
type CacheConfig struct {
	Dir string `yaml:"dir"` // Cache directory (empty = per-run temporary directory)
}

// PreviewConfig holds preview channel settings.
type PreviewConfig struct {
	RuntimeDir         string `yaml:"runtime_dir"`          // Parent of socket directories (empty = default)
	ReadTimeoutMs      int    `yaml:"read_timeout_ms"`      // Max wait for a helper's request
	HandshakeTimeoutMs int    `yaml:"handshake_timeout_ms"` // Max wait for the shutdown handshake
	Color              bool   `yaml:"color"`                // Style command previews
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path (empty = default, "-" = stderr)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Debug: false,
		Chooser: ChooserConfig{
			Backend:     "auto",
			FzfPath:     "",
			ExtraArgs:   []string{},
			CancelCodes: []int{1, 130},
		},
		Cache: CacheConfig{
			Dir: "",
		},
		Preview: PreviewConfig{
			RuntimeDir:         "",
			ReadTimeoutMs:      5000,
			HandshakeTimeoutMs: 10000,
			Color:              true,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ReadTimeout returns preview.read_timeout_ms as a duration.
func (p PreviewConfig) ReadTimeout() time.Duration {
	return time.Duration(p.ReadTimeoutMs) * time.Millisecond
}

// HandshakeTimeout returns preview.handshake_timeout_ms as a duration.
func (p PreviewConfig) HandshakeTimeout() time.Duration {
	return time.Duration(p.HandshakeTimeoutMs) * time.Millisecond
}

// Load loads the configuration from $MENUSEL_CONFIG or the default location.
func Load() (*Config, error) {
	if path := os.Getenv("MENUSEL_CONFIG"); path != "" {
		return LoadFromFile(path)
	}
	return LoadFromFile(DefaultPaths().ConfigFile())
}

// LoadFromFile loads the configuration from a specific file. A missing file
// yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // G304: config path is user-controlled by design
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Get returns the value of a configuration key ("debug" or "section.key").
func (c *Config) Get(key string) (string, error) {
	if key == "debug" {
		return strconv.FormatBool(c.Debug), nil
	}

	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be 'debug' or in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "chooser":
		return c.getChooserField(field)
	case "cache":
		return c.getCacheField(field)
	case "preview":
		return c.getPreviewField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getChooserField(field string) (string, error) {
	switch field {
	case "backend":
		return c.Chooser.Backend, nil
	case "fzf_path":
		return c.Chooser.FzfPath, nil
	case "extra_args":
		return strings.Join(c.Chooser.ExtraArgs, " "), nil
	case "cancel_codes":
		codes := make([]string, len(c.Chooser.CancelCodes))
		for i, code := range c.Chooser.CancelCodes {
			codes[i] = strconv.Itoa(code)
		}
		return strings.Join(codes, ","), nil
	default:
		return "", fmt.Errorf("unknown field: chooser.%s", field)
	}
}

func (c *Config) getCacheField(field string) (string, error) {
	switch field {
	case "dir":
		return c.Cache.Dir, nil
	default:
		return "", fmt.Errorf("unknown field: cache.%s", field)
	}
}

func (c *Config) getPreviewField(field string) (string, error) {
	switch field {
	case "runtime_dir":
		return c.Preview.RuntimeDir, nil
	case "read_timeout_ms":
		return strconv.Itoa(c.Preview.ReadTimeoutMs), nil
	case "handshake_timeout_ms":
		return strconv.Itoa(c.Preview.HandshakeTimeoutMs), nil
	case "color":
		return strconv.FormatBool(c.Preview.Color), nil
	default:
		return "", fmt.Errorf("unknown field: preview.%s", field)
	}
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	case "file":
		return c.Log.File, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidBackend(c.Chooser.Backend) {
		return fmt.Errorf("chooser.backend must be auto, fzf, or builtin (got: %s)", c.Chooser.Backend)
	}

	for _, code := range c.Chooser.CancelCodes {
		if code == 0 {
			return errors.New("chooser.cancel_codes must not contain 0")
		}
	}

	if c.Preview.ReadTimeoutMs < 0 {
		return errors.New("preview.read_timeout_ms must be >= 0")
	}

	if c.Preview.HandshakeTimeoutMs < 0 {
		return errors.New("preview.handshake_timeout_ms must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidBackend(backend string) bool {
	switch backend {
	case "auto", "fzf", "builtin":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MENUSEL_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Debug = true
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("MENUSEL_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("MENUSEL_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("MENUSEL_CHOOSER"); v != "" {
		c.Chooser.Backend = v
	}
}

// ListKeys returns the configuration keys shown by the config command.
func ListKeys() []string {
	return []string{
		"debug",
		"chooser.backend",
		"chooser.fzf_path",
		"chooser.extra_args",
		"chooser.cancel_codes",
		"cache.dir",
		"preview.runtime_dir",
		"preview.read_timeout_ms",
		"preview.handshake_timeout_ms",
		"preview.color",
		"log.level",
		"log.file",
	}
}
