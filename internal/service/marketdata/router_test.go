package marketdata

import (
	"context"
	"sync"
	"testing"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
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

// fakeFeed captures upstream subscriptions and lets tests emit ticks.
type fakeFeed struct {
	mu         sync.Mutex
	handlers   map[string]drepo.TickHandler
	subscribes int
	unsubs     []string
	closed     bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{handlers: make(map[string]drepo.TickHandler)}
}

func (f *fakeFeed) Connect(context.Context) {}

func (f *fakeFeed) Subscribe(symbol string, h drepo.TickHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[symbol] = h
	f.subscribes++
}

func (f *fakeFeed) Unsubscribe(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, symbol)
	f.unsubs = append(f.unsubs, symbol)
}

func (f *fakeFeed) FetchHistoricalData(context.Context, string, string, int) ([]models.Candle, error) {
	return nil, nil
}

func (f *fakeFeed) IsConnected() bool { return true }

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFeed) emit(symbol string, c models.Candle) {
	f.mu.Lock()
	h := f.handlers[symbol]
	f.mu.Unlock()
	if h != nil {
		h(c)
	}
}

func (f *fakeFeed) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

func (f *fakeFeed) unsubscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unsubs...)
}

type fakeArchive struct {
	mu      sync.Mutex
	batches map[string][][]models.Candle
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{batches: make(map[string][][]models.Candle)}
}

func (f *fakeArchive) Store(_ context.Context, symbol string, c models.Candle) error {
	return f.StoreBatch(context.Background(), symbol, []models.Candle{c})
}

func (f *fakeArchive) StoreBatch(_ context.Context, symbol string, cs []models.Candle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[symbol] = append(f.batches[symbol], append([]models.Candle(nil), cs...))
	return nil
}

func (f *fakeArchive) Query(context.Context, string, time.Time, time.Time, int) ([]models.Candle, error) {
	return nil, nil
}

func (f *fakeArchive) Close() error { return nil }

func (f *fakeArchive) stored(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches[symbol] {
		n += len(b)
	}
	return n
}

type routerMetrics struct{}

func (routerMetrics) RecordTick(string)           {}
func (routerMetrics) RecordSignal(string, string) {}
func (routerMetrics) SetActiveScouts(int)         {}
func (routerMetrics) RecordError(string)          {}
func (routerMetrics) RecordLatency(string, float64) {
}

func candleAt(ts int64, close float64) models.Candle {
	return models.Candle{Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestSubscribeSharesUpstream(t *testing.T) {
	feed := newFakeFeed()
	r := NewRouter(feed, nil, routerMetrics{}, testLogger(t))

	var mu sync.Mutex
	got := map[string]int{}
	handler := func(id string) drepo.TickHandler {
		return func(models.Candle) {
			mu.Lock()
			got[id]++
			mu.Unlock()
		}
	}

	r.SubscribeToSymbol("BTC/USDT", "a", handler("a"))
	r.SubscribeToSymbol("BTC/USDT", "b", handler("b"))

	if n := feed.subscribeCount(); n != 1 {
		t.Fatalf("upstream subscriptions = %d, want 1", n)
	}

	feed.emit("BTC/USDT", candleAt(1000, 50))
	mu.Lock()
	defer mu.Unlock()
	if got["a"] != 1 || got["b"] != 1 {
		t.Fatalf("tick fan-out = %v, want both subscribers once", got)
	}
}

func TestUnsubscribeClosesUpstreamOnLast(t *testing.T) {
	feed := newFakeFeed()
	r := NewRouter(feed, nil, routerMetrics{}, testLogger(t))

	var mu sync.Mutex
	ticks := 0
	r.SubscribeToSymbol("ETH/USDT", "a", func(models.Candle) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})
	r.SubscribeToSymbol("ETH/USDT", "b", func(models.Candle) {})

	r.UnsubscribeFromSymbol("ETH/USDT", "b")
	if len(feed.unsubscribed()) != 0 {
		t.Fatal("upstream closed while a subscriber remains")
	}

	r.UnsubscribeFromSymbol("ETH/USDT", "a")
	got := feed.unsubscribed()
	if len(got) != 1 || got[0] != "ETH/USDT" {
		t.Fatalf("unsubscribed = %v, want [ETH/USDT]", got)
	}
}

func TestRemovedSubscriberStopsReceiving(t *testing.T) {
	feed := newFakeFeed()
	r := NewRouter(feed, nil, routerMetrics{}, testLogger(t))

	var mu sync.Mutex
	ticks := 0
	r.SubscribeToSymbol("BTC/USDT", "a", func(models.Candle) {
		mu.Lock()
		ticks++
		mu.Unlock()
	})
	r.SubscribeToSymbol("BTC/USDT", "keep", func(models.Candle) {})

	feed.emit("BTC/USDT", candleAt(1000, 50))
	r.UnsubscribeFromSymbol("BTC/USDT", "a")
	feed.emit("BTC/USDT", candleAt(2000, 51))

	mu.Lock()
	defer mu.Unlock()
	if ticks != 1 {
		t.Fatalf("ticks after unsubscribe = %d, want 1", ticks)
	}
}

func TestRecentTracksWindow(t *testing.T) {
	feed := newFakeFeed()
	r := NewRouter(feed, nil, routerMetrics{}, testLogger(t))

	r.SubscribeToSymbol("BTC/USDT", "a", func(models.Candle) {})
	for i := 0; i < 3; i++ {
		feed.emit("BTC/USDT", candleAt(int64(i*1000), 100+float64(i)))
	}

	recent := r.Recent("BTC/USDT")
	if len(recent) != 3 {
		t.Fatalf("recent = %d candles, want 3", len(recent))
	}
	if recent[2].Close != 102 {
		t.Fatalf("last close = %v, want 102", recent[2].Close)
	}
	if r.Recent("ETH/USDT") != nil {
		t.Fatal("expected nil window for unknown symbol")
	}
}

func TestArchiveFlushBySize(t *testing.T) {
	feed := newFakeFeed()
	archive := newFakeArchive()
	r := NewRouter(feed, archive, routerMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Cleanup()

	r.SubscribeToSymbol("BTC/USDT", "a", func(models.Candle) {})
	for i := 0; i < archiveFlushSize; i++ {
		feed.emit("BTC/USDT", candleAt(int64(i*1000), 100))
	}

	waitUntil(t, 3*time.Second, func() bool {
		return archive.stored("BTC/USDT") == archiveFlushSize
	})
}

func TestCleanupFlushesPendingAndClosesFeed(t *testing.T) {
	feed := newFakeFeed()
	archive := newFakeArchive()
	r := NewRouter(feed, archive, routerMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	r.SubscribeToSymbol("BTC/USDT", "a", func(models.Candle) {})
	for i := 0; i < 3; i++ {
		feed.emit("BTC/USDT", candleAt(int64(i*1000), 100))
	}

	r.Cleanup()

	if got := archive.stored("BTC/USDT"); got != 3 {
		t.Fatalf("archived after cleanup = %d, want 3", got)
	}
	feed.mu.Lock()
	closed := feed.closed
	feed.mu.Unlock()
	if !closed {
		t.Fatal("expected feed closed on cleanup")
	}
	if r.Recent("BTC/USDT") != nil {
		t.Fatal("expected windows cleared on cleanup")
	}
}
