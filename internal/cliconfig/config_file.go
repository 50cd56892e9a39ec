package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	AccessToken       string         `toml:"access_token"`
	UserID            string         `toml:"user_id"`
	BaseURL           string         `toml:"base_url"`
	AppVersion        string         `toml:"app_version"`
	Active            *bool          `toml:"active"`
	EnableFlags       *bool          `toml:"flags"`
	Quiet             *bool          `toml:"quiet"`
	Verbose           *bool          `toml:"verbose"`
	HeartbeatInterval string         `toml:"heartbeat_interval"`
	FlushThreshold    int            `toml:"flush_threshold"`
	HTTPTimeout       string         `toml:"http_timeout"`
	CloseTimeout      string         `toml:"close_timeout"`
	Custom            map[string]any `toml:"custom"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.platoon/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".platoon", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("access-token", fc.AccessToken, &cfg.AccessToken)
	s.setString("user-id", fc.UserID, &cfg.UserID)
	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("app-version", fc.AppVersion, &cfg.AppVersion)

	if err := s.setDuration("heartbeat", fc.HeartbeatInterval, &cfg.HeartbeatInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("close-timeout", fc.CloseTimeout, &cfg.CloseTimeout); err != nil {
		return err
	}

	s.setInt("flush-threshold", fc.FlushThreshold, &cfg.FlushThreshold)

	s.setBool("active", fc.Active, &cfg.Active)
	s.setBool("flags", fc.EnableFlags, &cfg.EnableFlags)
	s.setBool("quiet", fc.Quiet, &cfg.Quiet)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	s.mergeCustom("custom", fc.Custom, &cfg.Custom)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
