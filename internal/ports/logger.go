package ports

import "github.com/bft-labs/platoon/pkg/log"

// Logger is the structured logger used throughout the engine.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for the engine and adapters.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
)
