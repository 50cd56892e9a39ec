package eventfile

import "github.com/bft-labs/platoon/pkg/platoon"

// WithEventFile returns a platoon Option that forwards lines appended to
// path as events once the session is ready.
//
// Usage:
//
//	client, err := platoon.New(cfg, eventfile.WithEventFile("/var/log/game/events.ndjson"))
func WithEventFile(path string) platoon.Option {
	return WithConfig(DefaultConfig(path))
}

// WithConfig returns a platoon Option that enables the plugin with cfg.
//
// Usage:
//
//	client, err := platoon.New(cfg,
//	    eventfile.WithConfig(eventfile.Config{
//	        Path:      "/var/log/game/events.ndjson",
//	        FromStart: true,
//	    }),
//	)
func WithConfig(cfg Config) platoon.Option {
	return platoon.WithPlugin(New(cfg))
}
