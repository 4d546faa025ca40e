package netsweep

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config errors
var (
	ErrInvalidConcurrency = errors.New("invalid concurrency limit")
	ErrInvalidPingCount   = errors.New("invalid pings per attempt")
	ErrInvalidPacketSize  = errors.New("invalid packet size")
	ErrInvalidTTL         = errors.New("invalid time to live")
	ErrInvalidTimeout     = errors.New("invalid ping timeout")
	ErrInvalidRetries     = errors.New("invalid retry count")
	ErrInvalidRateLimit   = errors.New("invalid probe rate limit")
	ErrInvalidPath        = errors.New("invalid path")
	ErrMissingCredentials = errors.New("missing credentials for authentication")
)

// ProbeConfig holds the per-scan probing parameters. It is a read-only
// input: the engine copies it at construction and never mutates it.
type ProbeConfig struct {
	ConcurrencyLimit      int `json:"concurrency_limit"`
	PingsPerAttempt       int `json:"pings_per_attempt"`
	PacketSizeBytes       int `json:"packet_size_bytes"`
	TimeToLive            int `json:"time_to_live"`
	PerPingTimeoutSeconds int `json:"per_ping_timeout_seconds"`
	MaxRetries            int `json:"max_retries"`
}

// DefaultProbeConfig returns the default probing parameters
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		ConcurrencyLimit:      10,
		PingsPerAttempt:       4,
		PacketSizeBytes:       56,
		TimeToLive:            64,
		PerPingTimeoutSeconds: 2,
		MaxRetries:            1,
	}
}

// PingTimeout returns the per-probe timeout as a duration
func (c ProbeConfig) PingTimeout() time.Duration {
	return time.Duration(c.PerPingTimeoutSeconds) * time.Second
}

// Validate checks the probing parameters against their permitted ranges
func (c ProbeConfig) Validate() error {
	if c.ConcurrencyLimit < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.ConcurrencyLimit)
	}
	if c.PingsPerAttempt < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPingCount, c.PingsPerAttempt)
	}
	if c.PacketSizeBytes < 1 || c.PacketSizeBytes > 65500 {
		return fmt.Errorf("%w: %d (1-65500)", ErrInvalidPacketSize, c.PacketSizeBytes)
	}
	if c.TimeToLive < 1 || c.TimeToLive > 255 {
		return fmt.Errorf("%w: %d (1-255)", ErrInvalidTTL, c.TimeToLive)
	}
	if c.PerPingTimeoutSeconds < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, c.PerPingTimeoutSeconds)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetries, c.MaxRetries)
	}
	return nil
}

// Config represents the configuration for a sweep run
type Config struct {
	// Target networks, each in any form the parser accepts
	Networks []string `json:"networks"`

	// Probing configuration
	Probe ProbeConfig `json:"probe"`

	// Probes per second across all workers; 0 disables pacing
	RateLimit float64 `json:"rate_limit_pps"`

	// Reverse-DNS cache lifetime
	CacheTTLMinutes int `json:"cache_ttl_minutes"`

	// Logging configuration
	LogDir   string `json:"log_dir"`
	LogLevel string `json:"log_level"`

	// Metrics configuration
	MetricsEnabled  bool   `json:"metrics_enabled"`
	MetricsPort     string `json:"metrics_port"`
	MetricsTLS      bool   `json:"metrics_tls"`
	MetricsHostname string `json:"metrics_hostname"`
	MetricsAuth     bool   `json:"metrics_auth"`
	MetricsUsername string `json:"metrics_username"`
	MetricsPassword string `json:"metrics_password"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Probe:           DefaultProbeConfig(),
		RateLimit:       0,
		CacheTTLMinutes: 60,

		LogDir:   "logs",
		LogLevel: "info",

		MetricsEnabled:  false,
		MetricsPort:     "9091",
		MetricsTLS:      false,
		MetricsHostname: "localhost",
		MetricsAuth:     false,
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.LogDir == "" {
		config.LogDir = "logs"
	}

	return config, nil
}

// SaveConfig saves the current configuration to a file
func (c *Config) SaveConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Probe.Validate(); err != nil {
		return err
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("%w: %f", ErrInvalidRateLimit, c.RateLimit)
	}

	if c.CacheTTLMinutes < 0 {
		c.CacheTTLMinutes = 0
	}

	if c.LogDir == "" {
		return fmt.Errorf("%w: log directory cannot be empty", ErrInvalidPath)
	}

	logLevel := strings.ToLower(c.LogLevel)
	if logLevel != "debug" && logLevel != "info" && logLevel != "warn" && logLevel != "error" {
		c.LogLevel = "info"
	}

	if c.MetricsAuth && (c.MetricsUsername == "" || c.MetricsPassword == "") {
		return fmt.Errorf("%w: both username and password required when auth enabled", ErrMissingCredentials)
	}

	return nil
}
