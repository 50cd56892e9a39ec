package platoon

import "github.com/bft-labs/platoon/internal/domain"

// Errors returned by the client. Check them with errors.Is.
var (
	ErrClosed        = domain.ErrClosed
	ErrInvalidConfig = domain.ErrInvalidConfig
	ErrCloseTimeout  = domain.ErrCloseTimeout

	// ErrSessionNotReady is the reason given to OnEventDropped for events
	// added before the handshake completed.
	ErrSessionNotReady = domain.ErrSessionNotReady
)
