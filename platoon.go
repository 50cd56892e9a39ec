// Package platoon batches application events, runs a session handshake with
// the platoon service, caches feature flags and uploads buffered events in
// the background.
//
// Example usage:
//
//	client, err := platoon.New(platoon.Config{
//	    AccessToken: "your-access-token",
//	    UserID:      "player-42",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.EnableFlagRetrieval()
//	client.StartSession(func() {
//	    client.AddEvent("level_complete", map[string]any{"level": 3})
//	})
package platoon

import (
	"github.com/bft-labs/platoon/pkg/platoon"
)

// Config holds the configuration for a Client.
type Config = platoon.Config

// Client is an embeddable telemetry client. It is safe for concurrent use.
type Client = platoon.Client

// Option configures a Client.
type Option = platoon.Option

// EventHandler receives lifecycle notifications from a Client.
type EventHandler = platoon.EventHandler

// BaseEventHandler implements EventHandler with no-ops.
type BaseEventHandler = platoon.BaseEventHandler

// Plugin extends a Client with work tied to the session lifetime.
type Plugin = platoon.Plugin

// New creates a client. With Config.Disabled unset it starts active and
// begins flushing in the background once StartSession succeeds.
func New(cfg Config, opts ...Option) (*Client, error) {
	return platoon.New(cfg, opts...)
}

// WithLogger sets the logger used by the client.
func WithLogger(logger platoon.Logger) Option {
	return platoon.WithLogger(logger)
}

// WithEventHandler registers a handler for client notifications.
func WithEventHandler(handler EventHandler) Option {
	return platoon.WithEventHandler(handler)
}

// WithPlugin registers a plugin.
func WithPlugin(plugin Plugin) Option {
	return platoon.WithPlugin(plugin)
}

// WithHTTPClient sets the HTTP client used by the default transport.
func WithHTTPClient(client platoon.HTTPClient) Option {
	return platoon.WithHTTPClient(client)
}

// DefaultBaseURL is the service used when Config.BaseURL is empty.
const DefaultBaseURL = platoon.DefaultBaseURL

// SessionEndEvent is the event appended by Close.
const SessionEndEvent = platoon.SessionEndEvent

// Version is the library version reported in the User-Agent header.
const Version = platoon.Version

// Errors returned by the client.
var (
	ErrClosed        = platoon.ErrClosed
	ErrInvalidConfig = platoon.ErrInvalidConfig
	ErrCloseTimeout  = platoon.ErrCloseTimeout
)
