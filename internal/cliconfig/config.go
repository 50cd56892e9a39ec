package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the default telemetry service.
const DefaultBaseURL = "https://platoon.cc"

// AnonymousUserPrefix prefixes generated user ids.
const AnonymousUserPrefix = "anon#"

// Config holds CLI configuration for platoon.
type Config struct {
	AccessToken string
	UserID      string
	BaseURL     string
	AppVersion  string

	Active      bool
	EnableFlags bool
	Quiet       bool
	Verbose     bool

	HeartbeatInterval time.Duration
	FlushThreshold    int
	HTTPTimeout       time.Duration
	CloseTimeout      time.Duration

	// Custom holds extra init payload fields.
	Custom map[string]any
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Active:            true,
		HeartbeatInterval: 20 * time.Second,
		FlushThreshold:    50,
		HTTPTimeout:       15 * time.Second,
		CloseTimeout:      5 * time.Second,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
// A missing user id is replaced by a random anonymous one.
func (c *Config) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access-token is required")
	}

	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.UserID == "" {
		c.UserID = AnonymousUserPrefix + uuid.NewString()
	}

	if c.Quiet && c.Verbose {
		return fmt.Errorf("quiet and verbose are mutually exclusive")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.FlushThreshold <= 0 {
		return fmt.Errorf("flush threshold must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// mergeCustom adds entries to dst unless the flag was set. Existing keys
// are overwritten.
func (s *configSetter) mergeCustom(flag string, values map[string]any, dst *map[string]any) {
	if len(values) == 0 || s.changed[flag] {
		return
	}
	if *dst == nil {
		*dst = make(map[string]any, len(values))
	}
	for k, v := range values {
		(*dst)[k] = v
	}
}

// ParseCustom parses key=value pairs as given to the --custom flag.
func ParseCustom(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("parse custom %q: want key=value", pair)
		}
		out[k] = v
	}
	return out, nil
}
