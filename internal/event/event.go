// Package event unwraps platform webhook envelopes and routes them to
// handlers by type tag.
//
// Every verified delivery carries a {"type": ..., "data": ...} envelope. The
// type tag selects a handler; the data payload stays uninterpreted JSON until
// the handler decodes it. Event types nobody registered for are acknowledged
// without action, so the platform can add types without breaking the
// endpoint.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is the platform's webhook envelope.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseError reports a payload that does not carry the envelope shape.
// Envelopes only come from the platform itself, so a malformed one is an
// integration fault, not a client error.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "malformed event payload: " + e.Reason
}

// Unwrap parses a verified payload into an Event. Unknown type values are
// valid; a missing type or data field is not.
func Unwrap(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if ev.Type == "" {
		return Event{}, &ParseError{Reason: "missing event type"}
	}
	if isAbsent(ev.Data) {
		return Event{}, &ParseError{Reason: "missing event data"}
	}

	return ev, nil
}

// isAbsent treats omitted, empty and JSON-null data as not present.
func isAbsent(data json.RawMessage) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
