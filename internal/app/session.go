package app

import (
	"encoding/json"
	"fmt"

	"github.com/bft-labs/platoon/internal/domain"
	"github.com/bft-labs/platoon/internal/ports"
)

// StartSession sends the init handshake without blocking. onReady is called
// once, on the transport goroutine, when the server accepts the session and
// after the session hooks ran.
//
// Nothing happens while inactive. Calling it again while Pending resends the
// handshake and replaces onReady; the first successful response wins.
// Calling it when Ready only logs a warning.
func (e *Engine) StartSession(onReady func()) {
	e.mu.Lock()
	if e.closing || e.closed || !e.activation.active {
		e.mu.Unlock()
		e.logger.Debug("session not started, sending is disabled")
		return
	}
	if e.readiness.state == StateReady {
		e.mu.Unlock()
		e.logger.Warn("session already started", ports.String("session_id", e.SessionID()))
		return
	}

	prev, err := e.readiness.transitionTo(StatePending)
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("cannot start session", ports.Err(err))
		return
	}
	e.readyCallback = onReady

	req := domain.InitRequest{
		UserID:       e.session.UserID,
		Payload:      e.session.InitPayload(),
		Timestamp:    e.clock.Now().UTC().UnixMilli(),
		ProcessFlags: e.flagsRequested,
	}
	e.inflight.Add(1)
	e.mu.Unlock()

	if prev != StatePending {
		e.emitter.OnReadyStateChange(prev, StatePending, "handshake sent")
	}

	body, err := json.Marshal(req)
	if err != nil {
		e.handleInitOutcome(domain.TransportFailure(fmt.Errorf("encode init request: %w", err)))
		e.inflight.Done()
		return
	}

	e.logger.Debug("sending init", ports.String("user_id", req.UserID), ports.Bool("process_flags", req.ProcessFlags))
	e.transport.PostAsync(e.ctx, ports.InitPath, body, func(out domain.Outcome) {
		defer e.inflight.Done()
		e.handleInitOutcome(out)
	})
}

func (e *Engine) handleInitOutcome(out domain.Outcome) {
	switch out.Kind {
	case domain.OutcomeSuccess:
		resp, err := domain.ParseInitResponse(out.Body)
		if err != nil {
			e.logger.Error("transport error, disabling any further sending", ports.String("path", ports.InitPath), ports.Err(err))
			e.emitter.OnSendFailure(ports.InitPath, domain.OutcomeTransportFailure, err, 0)
			e.trip("malformed init response")
			return
		}
		e.completeHandshake(resp)

	case domain.OutcomeProtocolFailure:
		e.logger.Error("http error", ports.String("path", ports.InitPath), ports.Int("status", out.StatusCode), ports.Err(out.Err))
		e.emitter.OnSendFailure(ports.InitPath, out.Kind, out.Err, 0)

	default:
		e.logger.Error("transport error, disabling any further sending", ports.String("path", ports.InitPath), ports.Err(out.Err))
		e.emitter.OnSendFailure(ports.InitPath, out.Kind, out.Err, 0)
		e.trip("transport failure")
	}
}

// completeHandshake applies a successful init response. Responses arriving
// after the session is ready or closed are ignored.
func (e *Engine) completeHandshake(resp domain.InitResponse) {
	e.mu.Lock()
	if e.closed || e.session == nil {
		e.mu.Unlock()
		return
	}
	if e.readiness.state == StateReady {
		e.mu.Unlock()
		e.logger.Debug("duplicate init response ignored", ports.String("session_id", resp.SessionID))
		return
	}

	if err := e.session.Establish(resp.SessionID); err != nil {
		e.mu.Unlock()
		e.logger.Error("cannot establish session", ports.Err(err))
		return
	}
	if e.flagsRequested {
		e.flags = domain.NewFlagSet(resp.Flags)
	}
	prev, err := e.readiness.transitionTo(StateReady)
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("cannot mark session ready", ports.Err(err))
		return
	}
	callback := e.readyCallback
	e.readyCallback = nil
	flagCount := e.flags.Len()
	e.mu.Unlock()

	e.logger.Info("session ready", ports.String("session_id", resp.SessionID), ports.Int("flags", flagCount))
	e.emitter.OnReadyStateChange(prev, StateReady, "handshake accepted")

	if e.hooks != nil {
		e.hooks.SessionReady()
	}
	if callback != nil {
		callback()
	}
}
