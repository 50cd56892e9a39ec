package platoon

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bft-labs/platoon/internal/app"
	"github.com/bft-labs/platoon/internal/domain"
)

// DefaultBaseURL is the telemetry service used when Config.BaseURL is empty.
const DefaultBaseURL = "https://platoon.cc"

// Default values applied by Config.SetDefaults.
const (
	DefaultHeartbeatInterval = app.DefaultHeartbeatInterval
	DefaultFlushThreshold    = domain.DefaultFlushThreshold
	DefaultHTTPTimeout       = 15 * time.Second
	DefaultCloseTimeout      = app.DefaultCloseTimeout
)

// Config holds the configuration for a Client.
type Config struct {
	// AccessToken authenticates every request (X-API-KEY header). Required.
	AccessToken string

	// UserID identifies the user in every event. Required.
	UserID string

	// BaseURL is the service root. Default: https://platoon.cc
	BaseURL string

	// AppVersion is reported as "version" in the init payload.
	AppVersion string

	// Disabled starts the client inactive: no buffer, no heartbeat and no
	// requests until Activate(true).
	Disabled bool

	// HeartbeatInterval is the period of background flushes. Default: 20s
	HeartbeatInterval time.Duration

	// FlushThreshold is the buffered event count that triggers a flush. Default: 50
	FlushThreshold int

	// HTTPTimeout bounds each request when no custom HTTP client is given. Default: 15s
	HTTPTimeout time.Duration

	// CloseTimeout bounds how long Close waits for in-flight requests. Default: 5s
	CloseTimeout time.Duration

	// Quiet keeps only warnings and errors from the logger.
	Quiet bool

	// Verbose lets debug messages through.
	Verbose bool

	// CustomSessionData is merged into the init payload and overrides the
	// device fields of the same name.
	CustomSessionData map[string]any
}

// SetDefaults fills in zero values.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.FlushThreshold <= 0 {
		c.FlushThreshold = DefaultFlushThreshold
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
}

// Validate checks required fields. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required: %w", ErrInvalidConfig)
	}
	if c.UserID == "" {
		return fmt.Errorf("user id is required: %w", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base url: %v: %w", err, ErrInvalidConfig)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url %q must be http or https: %w", c.BaseURL, ErrInvalidConfig)
	}
	if u.Host == "" {
		return fmt.Errorf("base url %q has no host: %w", c.BaseURL, ErrInvalidConfig)
	}
	if c.Quiet && c.Verbose {
		return fmt.Errorf("quiet and verbose are mutually exclusive: %w", ErrInvalidConfig)
	}
	return nil
}
