package app

import "github.com/bft-labs/platoon/internal/domain"

// activation owns the active flag, the event buffer and the heartbeat.
// The buffer and heartbeat exist only while active. Guarded by the engine mutex.
type activation struct {
	active    bool
	buffer    *domain.EventBuffer
	heartbeat *heartbeat

	threshold    int
	newHeartbeat func() *heartbeat
}

// set switches activation and reports whether the state changed.
// Deactivating discards buffered events.
func (a *activation) set(enable bool) bool {
	if enable == a.active {
		return false
	}
	a.active = enable

	if enable {
		a.buffer = domain.NewEventBuffer(a.threshold)
		a.heartbeat = a.newHeartbeat()
		a.heartbeat.start()
		return true
	}

	if a.heartbeat != nil {
		a.heartbeat.stop()
		a.heartbeat = nil
	}
	a.buffer = nil
	return true
}

// current reports whether h is the live heartbeat.
func (a *activation) current(h *heartbeat) bool {
	return a.active && a.heartbeat == h
}

// buffered returns the number of pending events, zero when inactive.
func (a *activation) buffered() int {
	if a.buffer == nil {
		return 0
	}
	return a.buffer.Len()
}
