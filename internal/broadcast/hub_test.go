package broadcast

import (
	"encoding/json"
	"errors"
	"testing"

	"Momentum/internal/domain/models"
	applogger "Momentum/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type failingSink struct{ calls int }

func (f *failingSink) Send([]byte) error {
	f.calls++
	return errors.New("broken pipe")
}

func decode(t *testing.T, data []byte) models.StreamEvent {
	t.Helper()
	var ev models.StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func TestRegisterSendsConnectedAck(t *testing.T) {
	h := NewHub(testLogger(t))
	sink := NewChannelSink(4)
	h.Register(sink)

	select {
	case data := <-sink.C():
		if ev := decode(t, data); ev.Type != models.EventConnected {
			t.Fatalf("ack type = %s", ev.Type)
		}
	default:
		t.Fatalf("no ack queued")
	}
	if h.Clients() != 1 {
		t.Fatalf("clients = %d", h.Clients())
	}
}

func TestBroadcastReachesAllSinks(t *testing.T) {
	h := NewHub(testLogger(t))
	a, b := NewChannelSink(4), NewChannelSink(4)
	h.Register(a)
	h.Register(b)
	<-a.C()
	<-b.C()

	h.Broadcast(models.StreamEvent{Type: models.EventNewSignal, Signal: &models.Signal{ID: "s1", Symbol: "BTC/USDT"}})

	for _, sink := range []*ChannelSink{a, b} {
		select {
		case data := <-sink.C():
			ev := decode(t, data)
			if ev.Type != models.EventNewSignal || ev.Signal.ID != "s1" {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatalf("event not delivered")
		}
	}
}

func TestFailingSinkIsEvicted(t *testing.T) {
	h := NewHub(testLogger(t))
	bad := &failingSink{}
	good := NewChannelSink(4)

	h.mu.Lock()
	h.sinks[bad] = struct{}{}
	h.mu.Unlock()
	h.Register(good)
	<-good.C()

	h.Broadcast(models.StreamEvent{Type: models.EventNewSignal})
	if h.Clients() != 1 {
		t.Fatalf("failing sink not evicted, clients = %d", h.Clients())
	}

	// Delivery to the healthy sink must have happened regardless.
	select {
	case <-good.C():
	default:
		t.Fatalf("healthy sink starved by failing sink")
	}
}

func TestRegisterEvictsOnAckFailure(t *testing.T) {
	h := NewHub(testLogger(t))
	h.Register(&failingSink{})
	if h.Clients() != 0 {
		t.Fatalf("sink with failed ack must not stay registered")
	}
}

func TestChannelSinkSlowClient(t *testing.T) {
	s := NewChannelSink(1)
	if err := s.Send([]byte("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := s.Send([]byte("b")); !errors.Is(err, ErrSlowClient) {
		t.Fatalf("expected ErrSlowClient, got %v", err)
	}
}

func TestUnregisterUnknownSinkIsNoop(t *testing.T) {
	h := NewHub(testLogger(t))
	h.Unregister(NewChannelSink(1))
	if h.Clients() != 0 {
		t.Fatalf("clients = %d", h.Clients())
	}
}
