package domain

import (
	"encoding/json"
	"fmt"
)

// DeviceInfo describes the host for the init payload.
type DeviceInfo struct {
	Version  string
	Platform string
	Device   string
	OS       string
	SDK      string
}

// Session holds the common per-event fields and the init payload.
// SessionID is empty until the handshake succeeds and never changes afterwards.
type Session struct {
	UserID    string
	SessionID string

	device DeviceInfo
	custom Payload
}

// NewSession creates a session for the given user.
func NewSession(userID string, device DeviceInfo) *Session {
	return &Session{
		UserID: userID,
		device: device,
		custom: make(Payload),
	}
}

// SetCustom adds or replaces a custom init field. Custom fields override the
// device defaults of the same name (e.g. "version").
func (s *Session) SetCustom(key string, value any) {
	s.custom[key] = value
}

// InitPayload returns the payload sent with the handshake.
func (s *Session) InitPayload() Payload {
	p := Payload{
		"version":  s.device.Version,
		"platform": s.device.Platform,
		"device":   s.device.Device,
		"os":       s.device.OS,
		"sdk":      s.device.SDK,
	}
	for k, v := range s.custom {
		p[k] = v
	}
	return p
}

// Establish records the server-issued session id.
// Returns ErrInvalidTransition if the session id was already set.
func (s *Session) Establish(sessionID string) error {
	if s.SessionID != "" {
		return fmt.Errorf("session id already set to %q: %w", s.SessionID, ErrInvalidTransition)
	}
	s.SessionID = sessionID
	return nil
}

// NewEvent builds an event carrying the session's common fields.
func (s *Session) NewEvent(name string, timestamp int64, payload Payload) Event {
	return Event{
		UserID:    s.UserID,
		SessionID: s.SessionID,
		Name:      name,
		Timestamp: timestamp,
		Payload:   payload.Clone(),
	}
}

// InitRequest is the body of POST /api/init.
type InitRequest struct {
	UserID       string  `json:"user_id"`
	Payload      Payload `json:"payload"`
	Timestamp    int64   `json:"timestamp"`
	ProcessFlags bool    `json:"process_flags,omitempty"`
}

// InitResponse is the body returned by a successful handshake.
type InitResponse struct {
	SessionID string          `json:"session_id"`
	Flags     map[string]Flag `json:"flags,omitempty"`
}

// ParseInitResponse decodes a handshake response.
// A body that is not a JSON object or has no session id is malformed.
func ParseInitResponse(body []byte) (InitResponse, error) {
	var resp InitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return InitResponse{}, fmt.Errorf("decode init response: %v: %w", err, ErrMalformedResponse)
	}
	if resp.SessionID == "" {
		return InitResponse{}, fmt.Errorf("init response has no session_id: %w", ErrMalformedResponse)
	}
	return resp, nil
}
