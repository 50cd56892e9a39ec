package domain

import "errors"

// Domain errors represent error conditions in the platoon domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrClosed is returned when Close() is called on a closed client.
	ErrClosed = errors.New("platoon: client closed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("platoon: invalid configuration")

	// ErrInvalidTransition is returned when a session state change is not allowed.
	ErrInvalidTransition = errors.New("platoon: invalid session state transition")

	// ErrMalformedResponse marks a server response that could not be processed.
	ErrMalformedResponse = errors.New("platoon: malformed response")

	// ErrCloseTimeout is returned when in-flight requests did not finish before the close deadline.
	ErrCloseTimeout = errors.New("platoon: close timed out waiting for in-flight requests")

	// ErrSessionNotReady is the reason attached to events dropped before the handshake completed.
	ErrSessionNotReady = errors.New("platoon: event added before the session is ready")
)
