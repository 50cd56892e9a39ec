package platoon

import (
	"time"

	"github.com/bft-labs/platoon/internal/app"
	"github.com/bft-labs/platoon/internal/domain"
)

// ReadyState is the handshake state of the session.
type ReadyState = app.ReadyState

// Handshake states.
const (
	StateNotStarted = app.StateNotStarted
	StatePending    = app.StatePending
	StateReady      = app.StateReady
)

// OutcomeKind classifies a failed request.
type OutcomeKind = domain.OutcomeKind

// Outcome kinds reported in SendFailureEvent.
const (
	OutcomeSuccess          = domain.OutcomeSuccess
	OutcomeTransportFailure = domain.OutcomeTransportFailure
	OutcomeProtocolFailure  = domain.OutcomeProtocolFailure
)

// SessionEndEvent is the event appended by Close.
const SessionEndEvent = domain.SessionEndEvent

// EventHandler receives notifications about client operations.
// Methods are called synchronously, either from the calling goroutine or from
// a transport goroutine, and never while the client holds its lock.
// Implementations should return quickly.
type EventHandler interface {
	// OnReadyStateChange is called when the session state changes.
	OnReadyStateChange(event ReadyStateChangeEvent)

	// OnActivationChange is called when sending is enabled or disabled,
	// including the automatic disable after a transport failure.
	OnActivationChange(event ActivationChangeEvent)

	// OnBatchSent is called after the server accepted a batch.
	OnBatchSent(event BatchSentEvent)

	// OnSendFailure is called when a request fails.
	OnSendFailure(event SendFailureEvent)

	// OnEventDropped is called when an event is added before the session is ready.
	OnEventDropped(event EventDroppedEvent)
}

// ReadyStateChangeEvent describes a session state transition.
type ReadyStateChangeEvent struct {
	Previous ReadyState
	Current  ReadyState
	Reason   string
}

// ActivationChangeEvent describes an activation change.
type ActivationChangeEvent struct {
	Active bool
	Reason string
}

// BatchSentEvent describes a delivered batch.
type BatchSentEvent struct {
	EventCount int
	Blocking   bool
	Duration   time.Duration
}

// SendFailureEvent describes a failed request. EventCount is zero for the
// handshake.
type SendFailureEvent struct {
	Path       string
	Kind       OutcomeKind
	Error      error
	EventCount int
}

// EventDroppedEvent describes an event that was not buffered.
type EventDroppedEvent struct {
	Name   string
	Reason error
}

// BaseEventHandler provides no-op implementations of all EventHandler methods.
// Embed it to implement only the methods you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnReadyStateChange(ReadyStateChangeEvent) {}
func (BaseEventHandler) OnActivationChange(ActivationChangeEvent) {}
func (BaseEventHandler) OnBatchSent(BatchSentEvent)               {}
func (BaseEventHandler) OnSendFailure(SendFailureEvent)           {}
func (BaseEventHandler) OnEventDropped(EventDroppedEvent)         {}

// eventEmitterWrapper adapts EventHandler to app.Emitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e eventEmitterWrapper) OnReadyStateChange(previous, current app.ReadyState, reason string) {
	e.handler.OnReadyStateChange(ReadyStateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func (e eventEmitterWrapper) OnActivationChange(active bool, reason string) {
	e.handler.OnActivationChange(ActivationChangeEvent{Active: active, Reason: reason})
}

func (e eventEmitterWrapper) OnBatchSent(count int, blocking bool, duration time.Duration) {
	e.handler.OnBatchSent(BatchSentEvent{
		EventCount: count,
		Blocking:   blocking,
		Duration:   duration,
	})
}

func (e eventEmitterWrapper) OnSendFailure(path string, kind domain.OutcomeKind, err error, events int) {
	e.handler.OnSendFailure(SendFailureEvent{
		Path:       path,
		Kind:       kind,
		Error:      err,
		EventCount: events,
	})
}

func (e eventEmitterWrapper) OnEventDropped(name string, reason error) {
	e.handler.OnEventDropped(EventDroppedEvent{Name: name, Reason: reason})
}

// multiHandler fans notifications out to several handlers in order.
type multiHandler []EventHandler

func (m multiHandler) OnReadyStateChange(event ReadyStateChangeEvent) {
	for _, h := range m {
		h.OnReadyStateChange(event)
	}
}

func (m multiHandler) OnActivationChange(event ActivationChangeEvent) {
	for _, h := range m {
		h.OnActivationChange(event)
	}
}

func (m multiHandler) OnBatchSent(event BatchSentEvent) {
	for _, h := range m {
		h.OnBatchSent(event)
	}
}

func (m multiHandler) OnSendFailure(event SendFailureEvent) {
	for _, h := range m {
		h.OnSendFailure(event)
	}
}

func (m multiHandler) OnEventDropped(event EventDroppedEvent) {
	for _, h := range m {
		h.OnEventDropped(event)
	}
}
