package domain

import "fmt"

// OutcomeKind classifies the result of a transport call.
type OutcomeKind int

const (
	// OutcomeSuccess means a 2xx response was received and its body read.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeTransportFailure covers connection failures and failures to
	// build the request or process the response body. It disables sending.
	OutcomeTransportFailure

	// OutcomeProtocolFailure means the server answered with an error status.
	OutcomeProtocolFailure
)

// String returns a human-readable representation of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeProtocolFailure:
		return "protocol_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one POST.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       []byte
	Err        error
}

// Success builds a successful outcome.
func Success(status int, body []byte) Outcome {
	return Outcome{Kind: OutcomeSuccess, StatusCode: status, Body: body}
}

// TransportFailure builds a transport failure outcome.
func TransportFailure(err error) Outcome {
	return Outcome{Kind: OutcomeTransportFailure, Err: err}
}

// ProtocolFailure builds a protocol failure outcome for an error status.
func ProtocolFailure(status int, body []byte) Outcome {
	return Outcome{
		Kind:       OutcomeProtocolFailure,
		StatusCode: status,
		Body:       body,
		Err:        fmt.Errorf("server returned %d: %s", status, string(body)),
	}
}
