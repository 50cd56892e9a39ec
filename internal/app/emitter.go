package app

import (
	"time"

	"github.com/bft-labs/platoon/internal/domain"
)

// Emitter receives engine notifications. Methods are called synchronously
// and never while the engine lock is held.
type Emitter interface {
	OnReadyStateChange(previous, current ReadyState, reason string)
	OnActivationChange(active bool, reason string)
	OnBatchSent(count int, blocking bool, duration time.Duration)
	OnSendFailure(path string, kind domain.OutcomeKind, err error, events int)
	OnEventDropped(name string, reason error)
}

// SessionHooks lets the embedding layer run work when the session becomes
// ready and before it is closed.
type SessionHooks interface {
	SessionReady()
	SessionClosing()
}

type noopEmitter struct{}

func (noopEmitter) OnReadyStateChange(ReadyState, ReadyState, string)    {}
func (noopEmitter) OnActivationChange(bool, string)                      {}
func (noopEmitter) OnBatchSent(int, bool, time.Duration)                 {}
func (noopEmitter) OnSendFailure(string, domain.OutcomeKind, error, int) {}
func (noopEmitter) OnEventDropped(string, error)                         {}
