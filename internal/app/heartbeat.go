package app

import (
	"sync"
	"time"

	"github.com/bft-labs/platoon/internal/ports"
)

// DefaultHeartbeatInterval is the period between heartbeat flushes.
const DefaultHeartbeatInterval = 20 * time.Second

// heartbeat fires onTick periodically until stopped.
//
// stop only closes the quit channel and never waits, so it is safe to call
// with the engine lock held. A tick already received when stop runs can still
// reach onTick; the engine discards it by checking that h is the current
// heartbeat under its lock.
type heartbeat struct {
	clock    ports.Clock
	interval time.Duration
	onTick   func(*heartbeat)

	quit     chan struct{}
	stopOnce sync.Once
}

func newHeartbeat(clock ports.Clock, interval time.Duration, onTick func(*heartbeat)) *heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &heartbeat{
		clock:    clock,
		interval: interval,
		onTick:   onTick,
		quit:     make(chan struct{}),
	}
}

func (h *heartbeat) start() {
	ticker := h.clock.NewTicker(h.interval)
	go h.run(ticker)
}

func (h *heartbeat) run(ticker ports.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C():
			select {
			case <-h.quit:
				return
			default:
			}
			h.onTick(h)
		}
	}
}

func (h *heartbeat) stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
