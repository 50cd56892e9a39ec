package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice() DeviceInfo {
	return DeviceInfo{Version: "1.0.0", Platform: "linux/amd64", Device: "host", OS: "linux", SDK: "go 1.0.0"}
}

func TestSession_InitPayloadCustomOverrides(t *testing.T) {
	s := NewSession("steam#13", testDevice())
	s.SetCustom("version", "1.2.3")
	s.SetCustom("branch", "developer")

	p := s.InitPayload()

	assert.Equal(t, "1.2.3", p["version"])
	assert.Equal(t, "developer", p["branch"])
	assert.Equal(t, "linux/amd64", p["platform"])
	assert.Equal(t, "go 1.0.0", p["sdk"])
}

func TestSession_EstablishOnce(t *testing.T) {
	s := NewSession("u", testDevice())

	require.NoError(t, s.Establish("s1"))
	err := s.Establish("s2")

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, "s1", s.SessionID)
}

func TestSession_NewEventCopiesPayload(t *testing.T) {
	s := NewSession("u", testDevice())
	require.NoError(t, s.Establish("s1"))
	payload := Payload{"fred": 123}

	e := s.NewEvent("integer_event", 1700000000000, payload)
	payload["fred"] = 456

	assert.Equal(t, "u", e.UserID)
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, 123, e.Payload["fred"])
}

func TestEvent_WireFormat(t *testing.T) {
	e := Event{UserID: "u", Name: "empty_event", Timestamp: 42}

	b, err := json.Marshal(e)

	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"u","event":"empty_event","timestamp":42}`, string(b))
}

func TestInitRequest_WireFormat(t *testing.T) {
	s := NewSession("u", testDevice())
	req := InitRequest{UserID: s.UserID, Payload: s.InitPayload(), Timestamp: 7, ProcessFlags: true}

	b, err := json.Marshal(req)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	assert.Equal(t, true, generic["process_flags"])
	assert.Equal(t, "u", generic["user_id"])
	assert.Contains(t, generic["payload"], "device")

	req.ProcessFlags = false
	b, err = json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "process_flags")
}

func TestParseInitResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantID    string
		wantFlags int
	}{
		{"with flags", `{"session_id":"s1","flags":{"test":{"payload":5}}}`, false, "s1", 1},
		{"without flags", `{"session_id":"s1"}`, false, "s1", 0},
		{"null flags", `{"session_id":"s1","flags":null}`, false, "s1", 0},
		{"missing session id", `{"flags":{}}`, true, "", 0},
		{"not json", `<html>`, true, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseInitResponse([]byte(tt.body))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedResponse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, resp.SessionID)
			assert.Len(t, resp.Flags, tt.wantFlags)
		})
	}
}
