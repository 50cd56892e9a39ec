package cliconfig

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "PLATOON_"

// EnvConfig holds the raw PLATOON_* environment values. Everything is a
// string so that unset and zero can be told apart when layering over the
// file config.
type EnvConfig struct {
	AccessToken       string            `env:"ACCESS_TOKEN"`
	UserID            string            `env:"USER_ID"`
	BaseURL           string            `env:"BASE_URL"`
	AppVersion        string            `env:"APP_VERSION"`
	Active            string            `env:"ACTIVE"`
	EnableFlags       string            `env:"FLAGS"`
	Quiet             string            `env:"QUIET"`
	Verbose           string            `env:"VERBOSE"`
	HeartbeatInterval string            `env:"HEARTBEAT_INTERVAL"`
	FlushThreshold    string            `env:"FLUSH_THRESHOLD"`
	HTTPTimeout       string            `env:"HTTP_TIMEOUT"`
	CloseTimeout      string            `env:"CLOSE_TIMEOUT"`
	Custom            map[string]string `env:"CUSTOM"`
}

// LoadEnvConfig reads PLATOON_* variables. A nil environ reads the process
// environment.
// PLATOON_CUSTOM takes comma separated key:value pairs.
func LoadEnvConfig(environ map[string]string) (EnvConfig, error) {
	var ec EnvConfig
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&ec, opts); err != nil {
		return ec, fmt.Errorf("parse environment: %w", err)
	}
	return ec, nil
}

// ApplyEnvConfig applies configuration from environment variables (PLATOON_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, ec EnvConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("access-token", ec.AccessToken, &cfg.AccessToken)
	s.setString("user-id", ec.UserID, &cfg.UserID)
	s.setString("base-url", ec.BaseURL, &cfg.BaseURL)
	s.setString("app-version", ec.AppVersion, &cfg.AppVersion)

	if err := s.setDuration("heartbeat", ec.HeartbeatInterval, &cfg.HeartbeatInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", ec.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("close-timeout", ec.CloseTimeout, &cfg.CloseTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("flush-threshold", ec.FlushThreshold, &cfg.FlushThreshold); err != nil {
		return err
	}

	s.setBoolFromString("active", ec.Active, &cfg.Active)
	s.setBoolFromString("flags", ec.EnableFlags, &cfg.EnableFlags)
	s.setBoolFromString("quiet", ec.Quiet, &cfg.Quiet)
	s.setBoolFromString("verbose", ec.Verbose, &cfg.Verbose)

	custom := make(map[string]any, len(ec.Custom))
	for k, v := range ec.Custom {
		custom[k] = v
	}
	s.mergeCustom("custom", custom, &cfg.Custom)

	return nil
}
