package queue

import (
	"context"
	"time"
)

// QueueService publishes typed messages to a queue.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Message is the wire format of an enqueued item.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Timestamp time.Time
}
