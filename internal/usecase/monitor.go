package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	applogger "Momentum/pkg/logger"
)

// minAnalysisCandles is the window length below which a symbol is skipped for
// one cycle instead of analyzed.
const minAnalysisCandles = 50

// MarketData is the subset of the router the monitor depends on.
type MarketData interface {
	SubscribeToSymbol(symbol, subscriberID string, handler drepo.TickHandler)
	UnsubscribeFromSymbol(symbol, subscriberID string)
	GetHistoricalData(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	Recent(symbol string) []models.Candle
}

// Evaluator runs one strategy over a window of candles.
type Evaluator interface {
	Evaluate(window []models.Candle, symbol, userID string, strategy models.Strategy) *models.SignalDraft
}

// Monitor owns the runtime task of every active scout: its rolling windows,
// its feed subscriptions and its periodic analysis timer. Failures are
// isolated per scout; one scout erroring never touches another's timer or
// subscriptions. Exactly one Monitor coordinates all scouts per process.
type Monitor struct {
	market  MarketData
	det     Evaluator
	scouts  drepo.ScoutStore
	writer  *SignalWriter
	metrics drepo.Metrics
	log     *applogger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	runners map[string]*runner
}

// runner is the per-scout runtime task. Each scout owns its windows
// exclusively; two scouts watching the same symbol keep independent windows.
type runner struct {
	scout    *models.Scout
	windows  map[string]*models.Window
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	busy     atomic.Bool
}

// NewMonitor creates a Monitor.
func NewMonitor(
	market MarketData,
	det Evaluator,
	scouts drepo.ScoutStore,
	writer *SignalWriter,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		market:  market,
		det:     det,
		scouts:  scouts,
		writer:  writer,
		metrics: metrics,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		runners: make(map[string]*runner),
	}
}

// StartScout seeds per-symbol rolling windows from historical data, registers
// live-tick subscriptions and starts the periodic analysis timer. Starting an
// already-running scout is a logged no-op, not a restart. A startup failure
// routes through scout error handling: the scout ends up stopped with status
// ERROR.
func (m *Monitor) StartScout(ctx context.Context, scout *models.Scout) error {
	r := &runner{
		scout:    scout,
		windows:  make(map[string]*models.Window),
		interval: scout.ScanInterval(),
		stop:     make(chan struct{}),
	}

	m.mu.Lock()
	if _, ok := m.runners[scout.ID]; ok {
		m.mu.Unlock()
		m.log.Info("scout already running", applogger.String("scout", scout.ID))
		return nil
	}
	m.runners[scout.ID] = r
	n := len(m.runners)
	m.mu.Unlock()
	m.metrics.SetActiveScouts(n)

	if err := m.seedRunner(ctx, r); err != nil {
		m.handleScoutError(scout.ID, err)
		return fmt.Errorf("start scout %s: %w", scout.ID, err)
	}

	// StopScout may have torn the runner down while seeding was blocked on
	// backfill. In that case the teardown ran before some subscriptions
	// existed, so release them here instead of launching the loop.
	m.mu.Lock()
	current, registered := m.runners[scout.ID]
	m.mu.Unlock()
	if !registered || current != r {
		for _, symbol := range scout.Symbols {
			m.market.UnsubscribeFromSymbol(symbol, scout.ID)
		}
		m.log.Info("scout stopped during startup", applogger.String("scout", scout.ID))
		return fmt.Errorf("start scout %s: stopped during startup", scout.ID)
	}

	go m.run(r)
	m.log.Info("scout started",
		applogger.String("scout", scout.ID),
		applogger.Strings("symbols", scout.Symbols),
		applogger.Duration("interval", r.interval),
	)
	return nil
}

func (m *Monitor) seedRunner(ctx context.Context, r *runner) error {
	for _, symbol := range r.scout.Symbols {
		hist, err := m.market.GetHistoricalData(ctx, symbol, "", models.DefaultWindowSize)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", symbol, err)
		}
		w := models.NewWindow(models.DefaultWindowSize)
		w.Seed(hist)
		r.windows[symbol] = w

		m.market.SubscribeToSymbol(symbol, r.scout.ID, w.Append)
	}
	return nil
}

func (m *Monitor) run(r *runner) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			// serialize ticks per scout: a tick arriving while the
			// previous analysis is still in flight is skipped
			if !r.busy.CompareAndSwap(false, true) {
				m.log.Debug("analysis in flight, tick skipped", applogger.String("scout", r.scout.ID))
				continue
			}
			err := m.analyze(r)
			r.busy.Store(false)
			if err != nil {
				m.handleScoutError(r.scout.ID, err)
				return
			}
		}
	}
}

// analyze runs one cycle over the scout's symbols in their configured order.
// A panic anywhere in the cycle is converted to an error so it stays fatal to
// this scout only, never to the process.
func (m *Monitor) analyze(r *runner) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("analysis cycle: %v", p)
		}
	}()

	start := time.Now()
	for _, symbol := range r.scout.Symbols {
		w := r.windows[symbol]
		if w == nil {
			continue
		}
		window := w.Snapshot()
		if len(window) < minAnalysisCandles {
			m.log.Info("insufficient data, symbol skipped",
				applogger.String("scout", r.scout.ID),
				applogger.String("symbol", symbol),
				applogger.Int("candles", len(window)),
			)
			continue
		}

		draft := m.det.Evaluate(window, symbol, r.scout.UserID, r.scout.Strategy)
		if draft != nil {
			m.writer.Accept(m.ctx, r.scout, draft, r.scout.UserID)
		}
	}
	m.metrics.RecordLatency("scout_analysis", time.Since(start).Seconds())
	return nil
}

// handleScoutError is fatal to the failing scout only: its persisted status
// becomes ERROR and its runtime task is fully released. There is no automatic
// restart; re-activation goes through the control surface.
func (m *Monitor) handleScoutError(scoutID string, cause error) {
	m.log.Error("scout failed", applogger.String("scout", scoutID), applogger.Error(cause))
	m.metrics.RecordError("scout_runtime")

	if err := m.scouts.UpdateStatus(m.ctx, scoutID, models.ScoutStatusError); err != nil {
		m.log.Error("scout status update failed", applogger.String("scout", scoutID), applogger.Error(err))
	}
	m.teardown(scoutID)
}

// StopScout cancels the scout's timer, releases its subscriptions and removes
// it from the registry. Idempotent: stopping an inactive scout is a no-op.
// An analysis already in flight may complete and its signal may still be
// persisted; that race is deliberate.
func (m *Monitor) StopScout(scoutID string) {
	if m.teardown(scoutID) {
		m.log.Info("scout stopped", applogger.String("scout", scoutID))
	}
}

func (m *Monitor) teardown(scoutID string) bool {
	m.mu.Lock()
	r, ok := m.runners[scoutID]
	if ok {
		delete(m.runners, scoutID)
	}
	n := len(m.runners)
	m.mu.Unlock()
	if !ok {
		return false
	}

	r.stopOnce.Do(func() { close(r.stop) })
	for _, symbol := range r.scout.Symbols {
		m.market.UnsubscribeFromSymbol(symbol, scoutID)
	}
	m.metrics.SetActiveScouts(n)
	return true
}

// IsRunning reports whether a scout has a live runtime task.
func (m *Monitor) IsRunning(scoutID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runners[scoutID]
	return ok
}

// ActiveScouts returns the ids of all running scouts.
func (m *Monitor) ActiveScouts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.runners))
	for id := range m.runners {
		ids = append(ids, id)
	}
	return ids
}

// Cleanup stops every active scout. Process shutdown only.
func (m *Monitor) Cleanup() {
	for _, id := range m.ActiveScouts() {
		m.StopScout(id)
	}
	m.cancel()
}
