package models

// Stream event type discriminators recognized by subscribers.
const (
	EventConnected    = "connected"
	EventNewSignal    = "new-signal"
	EventUpdateSignal = "update-signal"
	EventDeleteSignal = "delete-signal"
)

// StreamEvent is one message on the broadcast channel.
type StreamEvent struct {
	Type   string  `json:"type"`
	Signal *Signal `json:"signal,omitempty"`
}
