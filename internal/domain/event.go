package domain

// SessionEndEvent is the reserved event name appended by Close.
const SessionEndEvent = "$sessionEnd"

// Payload is a generic key-value payload serialized as a JSON object.
// Values must be JSON-encodable.
type Payload map[string]any

// Clone returns a shallow copy so later mutation by the caller does not
// change an enqueued event. A nil or empty payload clones to nil.
func (p Payload) Clone() Payload {
	if len(p) == 0 {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Event is one entry of an ingest batch. The user and session ids are the
// session's common fields, copied when the event is enqueued.
type Event struct {
	UserID    string  `json:"user_id"`
	SessionID string  `json:"session_id,omitempty"`
	Name      string  `json:"event"`
	Timestamp int64   `json:"timestamp"`
	Payload   Payload `json:"payload,omitempty"`
}
