package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/platoon/internal/domain"
	"github.com/bft-labs/platoon/internal/ports"
)

// DefaultCloseTimeout bounds how long Close waits for in-flight requests.
const DefaultCloseTimeout = 5 * time.Second

// Config holds engine settings. The embedding layer applies defaults.
type Config struct {
	UserID            string
	Device            domain.DeviceInfo
	CustomSessionData domain.Payload
	HeartbeatInterval time.Duration
	FlushThreshold    int
	Active            bool
	CloseTimeout      time.Duration
}

// Engine owns all client state: session, buffer, flags and activation.
//
// Every read and write of that state happens under mu. Transport calls,
// emitter notifications and host callbacks run with mu released; transport
// completions re-acquire it before touching state.
type Engine struct {
	mu sync.Mutex

	config    Config
	transport ports.Transport
	clock     ports.Clock
	logger    ports.Logger
	emitter   Emitter
	hooks     SessionHooks

	activation     *activation
	readiness      readiness
	session        *domain.Session
	flags          domain.FlagSet
	flagsRequested bool
	readyCallback  func()
	closing        bool
	closed         bool

	// inflight counts non-blocking requests. Add is only called under mu
	// before closed is set, so it never races with Close's Wait.
	inflight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine creates an engine. If config.Active is set, the buffer and the
// heartbeat are started immediately.
func NewEngine(config Config, transport ports.Transport, clock ports.Clock, logger ports.Logger, emitter Emitter, hooks SessionHooks) *Engine {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	if config.CloseTimeout <= 0 {
		config.CloseTimeout = DefaultCloseTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		config:    config,
		transport: transport,
		clock:     clock,
		logger:    logger,
		emitter:   emitter,
		hooks:     hooks,
		session:   domain.NewSession(config.UserID, config.Device),
		ctx:       ctx,
		cancel:    cancel,
	}
	for k, v := range config.CustomSessionData {
		e.session.SetCustom(k, v)
	}
	e.activation = &activation{
		threshold: config.FlushThreshold,
		newHeartbeat: func() *heartbeat {
			return newHeartbeat(clock, config.HeartbeatInterval, e.onHeartbeat)
		},
	}

	if config.Active {
		e.activation.set(true)
		e.emitter.OnActivationChange(true, "created")
	}

	logger.Info("client created",
		ports.String("user_id", config.UserID),
		ports.Bool("active", config.Active),
	)
	return e
}

// Activate enables or disables sending. Calling it with the current state
// does nothing. Deactivating discards buffered events.
func (e *Engine) Activate(enable bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	changed := e.activation.set(enable)
	e.mu.Unlock()

	if changed {
		e.logger.Info("activation changed", ports.Bool("active", enable))
		e.emitter.OnActivationChange(enable, "host")
	}
}

// IsActive reports whether sending is enabled.
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activation.active
}

// IsReady reports whether the handshake completed.
func (e *Engine) IsReady() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.readiness.state == StateReady
}

// ReadyState returns the handshake state.
func (e *Engine) ReadyState() ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readiness.state
}

// SessionID returns the server-issued session id, empty until ready.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.SessionID
}

// BufferedEvents returns the number of events waiting to be sent.
func (e *Engine) BufferedEvents() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activation.buffered()
}

// AddEvent enqueues an event. It does nothing while inactive. Before the
// session is ready, or when the payload cannot be encoded as JSON, the event
// is dropped and reported. Reaching the flush
// threshold sends the buffer without blocking.
func (e *Engine) AddEvent(name string, payload domain.Payload) {
	e.enqueue(name, payload, true)
}

func (e *Engine) enqueue(name string, payload domain.Payload, thresholdFlush bool) {
	e.mu.Lock()
	if e.closed || !e.activation.active {
		e.mu.Unlock()
		return
	}
	if e.readiness.state != StateReady {
		e.mu.Unlock()
		e.logger.Error("event added before the session is ready", ports.String("event", name))
		e.emitter.OnEventDropped(name, domain.ErrSessionNotReady)
		return
	}

	if payload != nil {
		if _, err := json.Marshal(payload); err != nil {
			e.mu.Unlock()
			err = fmt.Errorf("encode payload: %w", err)
			e.logger.Error("event payload cannot be encoded", ports.String("event", name), ports.Err(err))
			e.emitter.OnEventDropped(name, err)
			return
		}
	}

	event := e.session.NewEvent(name, e.clock.Now().UTC().UnixMilli(), payload)
	full := e.activation.buffer.Add(event)

	var batch []domain.Event
	if full && thresholdFlush {
		batch = e.takeBatchLocked()
	}
	e.mu.Unlock()

	if batch != nil {
		e.sendBatchAsync(batch)
	}
}

// Flush sends buffered events without blocking. Empty buffers send nothing.
func (e *Engine) Flush() {
	e.mu.Lock()
	if e.closed || !e.activation.active {
		e.mu.Unlock()
		return
	}
	batch := e.takeBatchLocked()
	e.mu.Unlock()

	if batch != nil {
		e.sendBatchAsync(batch)
	}
}

func (e *Engine) onHeartbeat(h *heartbeat) {
	e.mu.Lock()
	if e.closed || !e.activation.current(h) {
		e.mu.Unlock()
		return
	}
	batch := e.takeBatchLocked()
	e.mu.Unlock()

	e.logger.Debug("heartbeat", ports.Int("events", len(batch)))
	if batch != nil {
		e.sendBatchAsync(batch)
	}
}

// takeBatchLocked drains the buffer and registers the in-flight request
// that will carry it. Caller must hold e.mu.
func (e *Engine) takeBatchLocked() []domain.Event {
	if e.activation.buffer == nil || e.activation.buffer.Empty() {
		return nil
	}
	e.inflight.Add(1)
	return e.activation.buffer.Drain()
}

// EnableFlagRetrieval asks the server for flags on the next handshake.
// It has no effect once the session is ready.
func (e *Engine) EnableFlagRetrieval() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flagsRequested = true
}

// IsFlagActive reports whether the server issued the named flag.
// Always false before the session is ready.
func (e *Engine) IsFlagActive(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.readiness.state != StateReady {
		return false
	}
	return e.flags.Has(name)
}

// FlagPayload returns the decoded payload of the named flag.
func (e *Engine) FlagPayload(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.readiness.state != StateReady {
		return nil, false
	}
	return e.flags.Payload(name)
}

// Flags returns the names of all issued flags.
func (e *Engine) Flags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.readiness.state != StateReady {
		return nil
	}
	return e.flags.Names()
}

// SetCustomSessionData adds a field to the init payload. Fields set after
// StartSession only reach the server if the handshake is sent again.
func (e *Engine) SetCustomSessionData(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return
	}
	e.session.SetCustom(key, value)
}

// Close appends the session end event, sends everything buffered with one
// blocking request, deactivates and releases the session. It then waits up
// to CloseTimeout for in-flight requests. A second call returns ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closing || e.closed {
		e.mu.Unlock()
		return domain.ErrClosed
	}
	e.closing = true
	e.mu.Unlock()

	e.logger.Info("closing client")

	if e.hooks != nil {
		e.hooks.SessionClosing()
	}

	e.enqueue(domain.SessionEndEvent, nil, false)

	e.mu.Lock()
	var batch []domain.Event
	if e.activation.buffer != nil {
		batch = e.activation.buffer.Drain()
	}
	e.closed = true
	e.mu.Unlock()

	if batch != nil {
		e.sendBatch(batch)
	}

	e.mu.Lock()
	changed := e.activation.set(false)
	prev := e.readiness.reset()
	e.session = nil
	e.flags = domain.FlagSet{}
	e.readyCallback = nil
	e.mu.Unlock()

	if changed {
		e.emitter.OnActivationChange(false, "closed")
	}
	if prev != StateNotStarted {
		e.emitter.OnReadyStateChange(prev, StateNotStarted, "closed")
	}

	err := e.waitInflight(e.config.CloseTimeout)
	e.cancel()

	if err != nil {
		e.logger.Warn("in-flight requests still pending after close", ports.Duration("timeout", e.config.CloseTimeout))
		return err
	}
	e.logger.Info("client closed")
	return nil
}

// waitInflight waits for non-blocking requests to complete or the timeout.
func (e *Engine) waitInflight(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return domain.ErrCloseTimeout
	}
}

// trip disables sending after a transport failure. Only the host re-enables.
func (e *Engine) trip(reason string) {
	e.mu.Lock()
	changed := e.activation.set(false)
	e.mu.Unlock()

	if changed {
		e.emitter.OnActivationChange(false, reason)
	}
}
