package domain

import (
	"bytes"
	"encoding/json"
)

// Flag is a server-supplied feature flag. Payload is the raw JSON value and
// is empty when the server sent none.
type Flag struct {
	Payload json.RawMessage `json:"payload,omitempty"`
}

// hasPayload reports whether the flag carries a non-null payload.
func (f Flag) hasPayload() bool {
	p := bytes.TrimSpace(f.Payload)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// FlagSet maps flag names to flags. The zero value is an empty set.
type FlagSet struct {
	flags map[string]Flag
}

// NewFlagSet copies flags into an immutable set.
func NewFlagSet(flags map[string]Flag) FlagSet {
	if len(flags) == 0 {
		return FlagSet{}
	}
	cp := make(map[string]Flag, len(flags))
	for name, f := range flags {
		cp[name] = f
	}
	return FlagSet{flags: cp}
}

// Has reports whether the named flag is present.
func (s FlagSet) Has(name string) bool {
	_, ok := s.flags[name]
	return ok
}

// Len returns the number of flags.
func (s FlagSet) Len() int {
	return len(s.flags)
}

// Names returns the flag names in no particular order.
func (s FlagSet) Names() []string {
	names := make([]string, 0, len(s.flags))
	for name := range s.flags {
		names = append(names, name)
	}
	return names
}

// Payload returns the decoded payload of the named flag.
// ok is false when the flag is absent or carries no payload.
// Numbers decode as float64, objects as map[string]any.
func (s FlagSet) Payload(name string) (value any, ok bool) {
	f, found := s.flags[name]
	if !found || !f.hasPayload() {
		return nil, false
	}
	if err := json.Unmarshal(f.Payload, &value); err != nil {
		return nil, false
	}
	return value, true
}

// RawPayload returns the undecoded payload of the named flag.
func (s FlagSet) RawPayload(name string) (json.RawMessage, bool) {
	f, found := s.flags[name]
	if !found || !f.hasPayload() {
		return nil, false
	}
	return append(json.RawMessage(nil), f.Payload...), true
}
