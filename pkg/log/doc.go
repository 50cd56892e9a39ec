// Package log provides the logging abstraction used by platoon components.
//
// The [Logger] interface can be backed by any logging library. A zerolog
// adapter and a no-op logger are provided, plus [WithMinLevel] for the
// quiet and verbose switches of the client.
//
// # Usage
//
// Use the provided zerolog adapter:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Drop everything below warnings:
//
//	logger = log.WithMinLevel(logger, log.LevelWarn)
//
// Or discard output entirely:
//
//	logger := log.NewNoopLogger()
package log
