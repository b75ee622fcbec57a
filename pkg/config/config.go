package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roadwatch/roadwatch/pkg/log"
)

// Defaults applied when the config file omits a value
const (
	DefaultCacheCapacity      = 120
	DefaultSyncMaxAttempts    = 10
	DefaultReconnectBaseDelay = 3 * time.Second
	DefaultReconnectMaxTries  = 5
	DefaultPingInterval       = 30 * time.Second
	DefaultProbeInterval      = 15 * time.Second
	DefaultRequestTimeout     = 10 * time.Second
)

// Config holds the full roadwatch configuration
type Config struct {
	BackendURL   string `yaml:"backend_url"`
	WebSocketURL string `yaml:"websocket_url,omitempty"` // Derived from backend_url when empty
	TokenFile    string `yaml:"token_file,omitempty"`
	DataDir      string `yaml:"data_dir"`
	MetricsAddr  string `yaml:"metrics_addr,omitempty"`

	CacheCapacity   int `yaml:"cache_capacity,omitempty"`
	SyncMaxAttempts int `yaml:"sync_max_attempts,omitempty"`

	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay,omitempty"`
	ReconnectMaxTries  int           `yaml:"reconnect_max_attempts,omitempty"`
	PingInterval       time.Duration `yaml:"ping_interval,omitempty"`
	ProbeInterval      time.Duration `yaml:"probe_interval,omitempty"`
	RequestTimeout     time.Duration `yaml:"request_timeout,omitempty"`

	LogLevel  log.Level `yaml:"log_level,omitempty"`
	LogFormat string    `yaml:"log_format,omitempty"` // "json" or "console"
}

// Load reads a YAML config file, applies defaults, and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, suitable for
// flag-only invocations without a config file
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.DataDir = filepath.Join(home, ".roadwatch")
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
	if c.SyncMaxAttempts <= 0 {
		c.SyncMaxAttempts = DefaultSyncMaxAttempts
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.ReconnectMaxTries <= 0 {
		c.ReconnectMaxTries = DefaultReconnectMaxTries
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = log.InfoLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url must be http or https, got %q", u.Scheme)
	}
	if c.WebSocketURL != "" {
		wu, err := url.Parse(c.WebSocketURL)
		if err != nil {
			return fmt.Errorf("invalid websocket_url: %w", err)
		}
		if wu.Scheme != "ws" && wu.Scheme != "wss" {
			return fmt.Errorf("websocket_url must be ws or wss, got %q", wu.Scheme)
		}
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// ResolveWebSocketURL returns the realtime endpoint, deriving it from the
// backend URL scheme when not set explicitly (http -> ws, https -> wss)
func (c *Config) ResolveWebSocketURL() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	ws := c.BackendURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimSuffix(ws, "/") + "/ws"
}

// Token reads the bearer token from the configured token file. An absent
// token file yields an empty token, not an error
func (c *Config) Token() (string, error) {
	if c.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
