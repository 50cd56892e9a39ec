package app

import (
	"fmt"

	"github.com/bft-labs/platoon/internal/domain"
)

// ReadyState represents the handshake state of the session.
type ReadyState int

const (
	StateNotStarted ReadyState = iota
	StatePending
	StateReady
)

// String returns a human-readable representation of the state.
func (s ReadyState) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StatePending:
		return "Pending"
	case StateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// readiness is the handshake state machine. It has no lock of its own; the
// engine mutex guards it.
type readiness struct {
	state ReadyState
}

// transitionTo moves to next and returns the previous state.
// Pending may be re-entered to resend a handshake; Ready is final.
func (r *readiness) transitionTo(next ReadyState) (ReadyState, error) {
	prev := r.state

	switch prev {
	case StateNotStarted:
		if next != StatePending {
			return prev, fmt.Errorf("%s to %s: %w", prev, next, domain.ErrInvalidTransition)
		}
	case StatePending:
		if next != StatePending && next != StateReady {
			return prev, fmt.Errorf("%s to %s: %w", prev, next, domain.ErrInvalidTransition)
		}
	case StateReady:
		return prev, fmt.Errorf("%s to %s: %w", prev, next, domain.ErrInvalidTransition)
	}

	r.state = next
	return prev, nil
}

// reset returns to NotStarted when the session is released.
func (r *readiness) reset() ReadyState {
	prev := r.state
	r.state = StateNotStarted
	return prev
}
