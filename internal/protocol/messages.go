// Package protocol defines the push channel messages sent to subscribers.
package protocol

import "encoding/json"

// Message types sent to subscribers. Session state events use the names
// defined by the domain package (timeline.event, patient.updated,
// triage.updated).
const (
	TypeSubscribed = "subscribed"
	TypeError      = "error"
)

// Event is the envelope of every message written to a subscriber.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	Ts        int64       `json:"ts"`
	Data      interface{} `json:"data,omitempty"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeReadOnly       = "read_only"
)

// RawEvent is used by clients to decode an envelope before dispatching on Type.
type RawEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"`
	Data      json.RawMessage `json:"data,omitempty"`
}
