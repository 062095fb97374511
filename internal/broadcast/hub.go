package broadcast

import (
	"encoding/json"
	"errors"
	"sync"

	"Momentum/internal/domain/models"
	applogger "Momentum/pkg/logger"
)

// Sink is one live subscriber output. Send must not block indefinitely; a
// returned error drops the sink from the hub.
type Sink interface {
	Send(data []byte) error
}

// Hub fans signal events out to live subscribers. A write failure on one
// sink removes that sink only; delivery to the remaining sinks continues and
// Broadcast itself never fails.
type Hub struct {
	log *applogger.Logger

	mu    sync.Mutex
	sinks map[Sink]struct{}
}

// NewHub creates an empty Hub.
func NewHub(log *applogger.Logger) *Hub {
	return &Hub{
		log:   log,
		sinks: make(map[Sink]struct{}),
	}
}

// Register adds a sink and immediately sends the connection acknowledgement.
func (h *Hub) Register(s Sink) {
	h.mu.Lock()
	h.sinks[s] = struct{}{}
	n := len(h.sinks)
	h.mu.Unlock()

	ack, _ := json.Marshal(models.StreamEvent{Type: models.EventConnected})
	if err := s.Send(ack); err != nil {
		h.Unregister(s)
		return
	}
	h.log.Debug("stream client connected", applogger.Int("clients", n))
}

// Unregister removes a sink.
func (h *Hub) Unregister(s Sink) {
	h.mu.Lock()
	delete(h.sinks, s)
	n := len(h.sinks)
	h.mu.Unlock()
	h.log.Debug("stream client disconnected", applogger.Int("clients", n))
}

// Broadcast serializes the event once and writes it to every registered sink.
func (h *Hub) Broadcast(ev models.StreamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("broadcast marshal failed", applogger.Error(err))
		return
	}

	h.mu.Lock()
	sinks := make([]Sink, 0, len(h.sinks))
	for s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	for _, s := range sinks {
		if err := s.Send(data); err != nil {
			h.log.Warn("stream client dropped", applogger.Error(err))
			h.Unregister(s)
		}
	}
}

// Clients returns the number of registered sinks.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

// ErrSlowClient is returned by ChannelSink when the subscriber cannot keep up.
var ErrSlowClient = errors.New("broadcast: subscriber buffer full")

// ChannelSink buffers serialized events for one streaming connection. A full
// buffer fails the send so the hub evicts the subscriber instead of blocking
// the broadcast path.
type ChannelSink struct {
	ch chan []byte
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(size int) *ChannelSink {
	if size <= 0 {
		size = 16
	}
	return &ChannelSink{ch: make(chan []byte, size)}
}

// Send queues data for the subscriber.
func (s *ChannelSink) Send(data []byte) error {
	select {
	case s.ch <- data:
		return nil
	default:
		return ErrSlowClient
	}
}

// C exposes the queued events for the connection writer.
func (s *ChannelSink) C() <-chan []byte {
	return s.ch
}
