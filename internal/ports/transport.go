package ports

import (
	"context"

	"github.com/bft-labs/platoon/internal/domain"
)

// Service endpoints, relative to the configured base URL.
const (
	InitPath   = "/api/init"
	IngestPath = "/api/ingest"
)

// Transport posts JSON bodies to the telemetry service and classifies the
// result. Implementations never panic and report every failure as an Outcome.
type Transport interface {
	// Post sends body to path and blocks until the outcome is known.
	Post(ctx context.Context, path string, body []byte) domain.Outcome

	// PostAsync sends body to path without blocking the caller.
	// done is invoked exactly once with the outcome, normally from another goroutine.
	PostAsync(ctx context.Context, path string, body []byte, done func(domain.Outcome))
}
