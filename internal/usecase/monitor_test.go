package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Momentum/internal/detector"
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

// fakeMarket satisfies MarketData with preset history per symbol.
type fakeMarket struct {
	mu       sync.Mutex
	history  map[string][]models.Candle
	histErr  error
	histGate chan struct{} // when set, GetHistoricalData blocks until closed
	subs     map[string]map[string]drepo.TickHandler
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		history: make(map[string][]models.Candle),
		subs:    make(map[string]map[string]drepo.TickHandler),
	}
}

func (f *fakeMarket) SubscribeToSymbol(symbol, id string, h drepo.TickHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[symbol] == nil {
		f.subs[symbol] = make(map[string]drepo.TickHandler)
	}
	f.subs[symbol][id] = h
}

func (f *fakeMarket) UnsubscribeFromSymbol(symbol, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[symbol], id)
}

func (f *fakeMarket) GetHistoricalData(_ context.Context, symbol, _ string, _ int) ([]models.Candle, error) {
	if f.histGate != nil {
		<-f.histGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.histErr != nil {
		return nil, f.histErr
	}
	return f.history[symbol], nil
}

func (f *fakeMarket) Recent(symbol string) []models.Candle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[symbol]
}

func (f *fakeMarket) subscribers(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[symbol])
}

type fakeScoutStore struct {
	mu       sync.Mutex
	statuses map[string]models.ScoutStatus
	recorded []string
}

func newFakeScoutStore() *fakeScoutStore {
	return &fakeScoutStore{statuses: make(map[string]models.ScoutStatus)}
}

func (f *fakeScoutStore) Create(context.Context, *models.Scout) error { return nil }
func (f *fakeScoutStore) FindByID(context.Context, string) (*models.Scout, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeScoutStore) FindByUser(context.Context, string) ([]*models.Scout, error) {
	return nil, nil
}
func (f *fakeScoutStore) FindByStatus(context.Context, models.ScoutStatus) ([]*models.Scout, error) {
	return nil, nil
}
func (f *fakeScoutStore) Update(context.Context, *models.Scout) error { return nil }
func (f *fakeScoutStore) UpdateStatus(_ context.Context, id string, s models.ScoutStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = s
	return nil
}
func (f *fakeScoutStore) RecordSignal(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, id)
	return nil
}
func (f *fakeScoutStore) Delete(context.Context, string) error { return nil }

func (f *fakeScoutStore) status(id string) models.ScoutStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func (f *fakeScoutStore) recordedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorded)
}

type fakeSignalStore struct {
	mu      sync.Mutex
	created []*models.Signal
	err     error
}

func (f *fakeSignalStore) Create(_ context.Context, s *models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSignalStore) FindByUser(context.Context, string, int) ([]*models.Signal, error) {
	return nil, nil
}

func (f *fakeSignalStore) all() []*models.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Signal, len(f.created))
	copy(out, f.created)
	return out
}

type fakeNotifier struct {
	events chan models.StreamEvent
}

func (f *fakeNotifier) Broadcast(ev models.StreamEvent) {
	select {
	case f.events <- ev:
	default:
	}
}

type fakeMetrics struct{}

func (fakeMetrics) RecordTick(string)             {}
func (fakeMetrics) RecordSignal(string, string)   {}
func (fakeMetrics) SetActiveScouts(int)           {}
func (fakeMetrics) RecordError(string)            {}
func (fakeMetrics) RecordLatency(string, float64) {}

// panicEvaluator blows up on the first call.
type panicEvaluator struct{}

func (panicEvaluator) Evaluate([]models.Candle, string, string, models.Strategy) *models.SignalDraft {
	panic("evaluator exploded")
}

type countingEvaluator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingEvaluator) Evaluate([]models.Candle, string, string, models.Strategy) *models.SignalDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingEvaluator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func crossoverHistory(n int, jump float64) []models.Candle {
	cs := make([]models.Candle, n)
	for i := range cs {
		cs[i] = models.Candle{Timestamp: int64(i+1) * 60_000, Open: 100, High: 100, Low: 100, Close: 100, Volume: 10}
	}
	cs[n-1].Close = jump
	cs[n-1].High = jump
	return cs
}

func testScout(id string, symbols ...string) *models.Scout {
	return &models.Scout{
		ID:       id,
		UserID:   "user-1",
		Name:     "test scout",
		Strategy: models.StrategyEMACrossover,
		Symbols:  symbols,
		Interval: "1s",
		Status:   models.ScoutStatusActive,
	}
}

func newTestMonitor(t *testing.T, market MarketData, det Evaluator) (*Monitor, *fakeScoutStore, *fakeSignalStore, *fakeNotifier) {
	t.Helper()
	scouts := newFakeScoutStore()
	signals := &fakeSignalStore{}
	notifier := &fakeNotifier{events: make(chan models.StreamEvent, 8)}
	writer := NewSignalWriter(signals, scouts, notifier, nil, fakeMetrics{}, testLogger(t))
	m := NewMonitor(market, det, scouts, writer, fakeMetrics{}, testLogger(t))
	return m, scouts, signals, notifier
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

func TestStartScoutDetectsCrossover(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(60, 110)

	m, scouts, signals, notifier := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	scout := testScout("scout-1", "BTC/USDT")
	if err := m.StartScout(context.Background(), scout); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning("scout-1") {
		t.Fatalf("scout should be running")
	}
	if market.subscribers("BTC/USDT") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", market.subscribers("BTC/USDT"))
	}

	select {
	case ev := <-notifier.events:
		if ev.Type != models.EventNewSignal {
			t.Fatalf("event type = %s", ev.Type)
		}
		if ev.Signal == nil || ev.Signal.Direction != models.DirectionLong {
			t.Fatalf("unexpected signal %+v", ev.Signal)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no signal broadcast")
	}

	got := signals.all()
	if len(got) == 0 {
		t.Fatalf("signal not persisted")
	}
	s := got[0]
	if s.Symbol != "BTC/USDT" || s.Type != models.StrategyEMACrossover || s.UserID != "user-1" {
		t.Fatalf("unexpected signal %+v", s)
	}
	if s.EntryPrice != 110 || s.Status != models.SignalStatusActive {
		t.Fatalf("unexpected signal %+v", s)
	}
	if s.ID == "" {
		t.Fatalf("signal id not assigned")
	}
	waitFor(t, time.Second, func() bool { return scouts.recordedCount() > 0 })
}

func TestStartScoutIdempotent(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(60, 100)

	m, _, _, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	scout := testScout("scout-1", "BTC/USDT")
	if err := m.StartScout(context.Background(), scout); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.StartScout(context.Background(), scout); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}
	if market.subscribers("BTC/USDT") != 1 {
		t.Fatalf("duplicate start must not re-subscribe")
	}
	if len(m.ActiveScouts()) != 1 {
		t.Fatalf("expected 1 active scout")
	}
}

func TestStopScoutIdempotent(t *testing.T) {
	market := newFakeMarket()
	market.history["ETH/USDT"] = crossoverHistory(60, 100)

	m, _, _, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	if err := m.StartScout(context.Background(), testScout("scout-2", "ETH/USDT")); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.StopScout("scout-2")
	m.StopScout("scout-2")

	if m.IsRunning("scout-2") {
		t.Fatalf("scout still running after stop")
	}
	if market.subscribers("ETH/USDT") != 0 {
		t.Fatalf("subscriptions not released")
	}
}

func TestStopDuringBackfillReleasesSubscriptions(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(60, 100)
	market.histGate = make(chan struct{})

	m, _, _, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	started := make(chan error, 1)
	go func() {
		started <- m.StartScout(context.Background(), testScout("scout-7", "BTC/USDT"))
	}()

	// Runner registers before backfill, so the stop lands mid-seed.
	waitFor(t, 3*time.Second, func() bool { return m.IsRunning("scout-7") })
	m.StopScout("scout-7")
	close(market.histGate)

	if err := <-started; err == nil {
		t.Fatalf("expected start error after concurrent stop")
	}
	if m.IsRunning("scout-7") {
		t.Fatalf("scout must not be running after stop")
	}
	waitFor(t, 3*time.Second, func() bool { return market.subscribers("BTC/USDT") == 0 })
}

func TestScoutErrorTransition(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(60, 110)

	m, scouts, _, _ := newTestMonitor(t, market, panicEvaluator{})
	defer m.Cleanup()

	if err := m.StartScout(context.Background(), testScout("scout-3", "BTC/USDT")); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return !m.IsRunning("scout-3") })
	if got := scouts.status("scout-3"); got != models.ScoutStatusError {
		t.Fatalf("status = %s, want ERROR", got)
	}
	if market.subscribers("BTC/USDT") != 0 {
		t.Fatalf("failed scout must release subscriptions")
	}
}

func TestSeedFailureMarksError(t *testing.T) {
	market := newFakeMarket()
	market.histErr = errors.New("backfill unavailable")

	m, scouts, _, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	if err := m.StartScout(context.Background(), testScout("scout-4", "BTC/USDT")); err == nil {
		t.Fatalf("expected start error")
	}
	if m.IsRunning("scout-4") {
		t.Fatalf("failed scout must not be registered")
	}
	if got := scouts.status("scout-4"); got != models.ScoutStatusError {
		t.Fatalf("status = %s, want ERROR", got)
	}
}

func TestInsufficientDataSkipsEvaluation(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(30, 110)

	ev := &countingEvaluator{}
	m, _, _, _ := newTestMonitor(t, market, ev)
	defer m.Cleanup()

	if err := m.StartScout(context.Background(), testScout("scout-5", "BTC/USDT")); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)
	if ev.count() != 0 {
		t.Fatalf("evaluator must not run below the candle floor, ran %d times", ev.count())
	}
}

func TestLiveTicksReachWindow(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(60, 100)

	m, _, _, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	if err := m.StartScout(context.Background(), testScout("scout-6", "BTC/USDT")); err != nil {
		t.Fatalf("start: %v", err)
	}

	market.mu.Lock()
	h := market.subs["BTC/USDT"]["scout-6"]
	market.mu.Unlock()
	if h == nil {
		t.Fatalf("handler not registered")
	}
	h(models.Candle{Timestamp: 61 * 60_000, Open: 100, High: 100, Low: 100, Close: 100, Volume: 10})
	// The runner's window is internal; the subscription handler not
	// panicking and the scout staying healthy is the observable contract.
	if !m.IsRunning("scout-6") {
		t.Fatalf("scout should still be running")
	}
}

func TestDetectUseCaseOneShot(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(60, 110)

	m, _, signals, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	uc := NewDetectUseCase(market, detector.New(), m.writer, testLogger(t))
	sig, err := uc.Detect(context.Background(), "BTC/USDT", "user-9", models.StrategyEMACrossover)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if sig == nil || sig.Direction != models.DirectionLong {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if sig.UserID != "user-9" {
		t.Fatalf("user = %s", sig.UserID)
	}
	if len(signals.all()) != 1 {
		t.Fatalf("one-shot signal must persist")
	}
}

func TestDetectUseCaseNoCondition(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(60, 100)

	m, _, signals, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	uc := NewDetectUseCase(market, detector.New(), m.writer, testLogger(t))
	sig, err := uc.Detect(context.Background(), "BTC/USDT", "user-9", models.StrategyEMACrossover)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if sig != nil {
		t.Fatalf("flat market must not signal")
	}
	if len(signals.all()) != 0 {
		t.Fatalf("nothing should persist")
	}
}

func TestDetectUseCaseInsufficientData(t *testing.T) {
	market := newFakeMarket()
	market.history["BTC/USDT"] = crossoverHistory(10, 100)

	m, _, _, _ := newTestMonitor(t, market, detector.New())
	defer m.Cleanup()

	uc := NewDetectUseCase(market, detector.New(), m.writer, testLogger(t))
	if _, err := uc.Detect(context.Background(), "BTC/USDT", "u", models.StrategyEMACrossover); err == nil {
		t.Fatalf("expected error for short window")
	}
}

func TestSignalWriterPersistFailure(t *testing.T) {
	scouts := newFakeScoutStore()
	signals := &fakeSignalStore{err: errors.New("db down")}
	notifier := &fakeNotifier{events: make(chan models.StreamEvent, 1)}
	w := NewSignalWriter(signals, scouts, notifier, nil, fakeMetrics{}, testLogger(t))

	draft := &models.SignalDraft{Symbol: "BTC/USDT", Type: models.StrategyEMACrossover, Direction: models.DirectionLong}
	if sig := w.Accept(context.Background(), nil, draft, "u"); sig != nil {
		t.Fatalf("persist failure must yield nil")
	}
	select {
	case <-notifier.events:
		t.Fatalf("no broadcast on persist failure")
	default:
	}
}
