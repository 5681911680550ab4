package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the fusion configuration
type Config struct {
	Sensing SensingConfig `yaml:"sensing"`
	Server  ServerConfig  `yaml:"server"`
	Fanout  FanoutConfig  `yaml:"fanout"`
	Log     LogConfig     `yaml:"log"`
}

// SensingConfig describes how to reach the external sensing process
type SensingConfig struct {
	// URL is the base HTTP URL of the sensing process (the websocket
	// endpoint is derived from it)
	URL string `yaml:"url"`
	// SessionID is the fixed session all collected metrics are written to.
	// Empty means a generated session id is used for each collector run.
	SessionID string `yaml:"session_id,omitempty"`
	// UserID is an optional user attached to created sessions
	UserID string `yaml:"user_id,omitempty"`
	// PollIntervalSeconds is the fallback polling cadence
	PollIntervalSeconds int `yaml:"poll_interval_seconds,omitempty"`
	// PollBackoffSeconds is the sleep after repeated polling failures
	PollBackoffSeconds int `yaml:"poll_backoff_seconds,omitempty"`
}

// ServerConfig controls the query API listener
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// FanoutConfig controls realtime push cadences
type FanoutConfig struct {
	StateHz int `yaml:"state_hz,omitempty"`
	FrameHz int `yaml:"frame_hz,omitempty"`
}

// LogConfig controls logging verbosity
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("FUSION_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "fusion"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("FUSION_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Fusion"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "fusion"), nil
	}

	return filepath.Join(home, ".local", "share", "fusion"), nil
}

// Load loads config from the config file
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := &Config{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save saves the config to the config file
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Sensing.URL == "" {
		c.Sensing.URL = "http://localhost:5000"
	}
	if c.Sensing.PollIntervalSeconds <= 0 {
		c.Sensing.PollIntervalSeconds = 1
	}
	if c.Sensing.PollBackoffSeconds <= 0 {
		c.Sensing.PollBackoffSeconds = 5
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8083"
	}
	if c.Fanout.StateHz <= 0 {
		c.Fanout.StateHz = 10
	}
	if c.Fanout.FrameHz <= 0 {
		c.Fanout.FrameHz = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// PollInterval returns the fallback polling cadence as a duration
func (c SensingConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollBackoff returns the sleep applied after repeated polling failures
func (c SensingConfig) PollBackoff() time.Duration {
	return time.Duration(c.PollBackoffSeconds) * time.Second
}
