package domain

// DefaultFlushThreshold is the buffered event count that triggers a flush.
const DefaultFlushThreshold = 50

// EventBuffer holds pending events in insertion order.
// The threshold is advisory: Add reports when it is reached, it never rejects.
type EventBuffer struct {
	events    []Event
	threshold int
}

// NewEventBuffer creates an empty buffer. A non-positive threshold uses
// DefaultFlushThreshold.
func NewEventBuffer(threshold int) *EventBuffer {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &EventBuffer{
		events:    make([]Event, 0, threshold),
		threshold: threshold,
	}
}

// Add appends an event.
// Returns true if the buffer reached its threshold and should be flushed.
func (b *EventBuffer) Add(event Event) bool {
	b.events = append(b.events, event)
	return len(b.events) >= b.threshold
}

// Drain returns a snapshot of all buffered events and clears the buffer.
// Returns nil when the buffer is empty. The snapshot does not share memory
// with the buffer, so events added afterwards never appear in it.
func (b *EventBuffer) Drain() []Event {
	if len(b.events) == 0 {
		return nil
	}
	snapshot := make([]Event, len(b.events))
	copy(snapshot, b.events)
	b.events = b.events[:0]
	return snapshot
}

// Len returns the number of buffered events.
func (b *EventBuffer) Len() int {
	return len(b.events)
}

// Empty returns true if nothing is buffered.
func (b *EventBuffer) Empty() bool {
	return len(b.events) == 0
}
