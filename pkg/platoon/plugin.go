package platoon

import "context"

// Plugin extends a Client with optional behavior.
//
// Initialize is called once the session is ready, from the goroutine that
// delivered the handshake response. Shutdown is called at the start of
// Close, before the session end event is added, so events a plugin adds
// while shutting down still reach the final batch.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. A returned error is logged and the
	// plugin is skipped; the client keeps running.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin. ctx expires after the client's CloseTimeout.
	Shutdown(ctx context.Context) error
}

// EventSink accepts events. *Client implements it.
type EventSink interface {
	AddEvent(name string, payload map[string]any)
}

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	Sink      EventSink
	Logger    Logger
	UserID    string
	SessionID string
}
