package marketdata

import (
	"context"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	applogger "Momentum/pkg/logger"

	"sync"
)

const (
	archiveBufferSize    = 1024
	archiveFlushSize     = 100
	archiveFlushInterval = 5 * time.Second
)

// Router multiplexes many logical subscribers onto one upstream feed
// subscription per symbol, maintains a bounded rolling window of recent
// candles per symbol, and drains every tick into the candle archive. Exactly
// one Router coordinates all scouts; it is constructed once at process start
// and passed by reference.
type Router struct {
	feed    drepo.MarketFeed
	archive drepo.CandleArchive
	log     *applogger.Logger
	metrics drepo.Metrics

	mu      sync.Mutex
	subs    map[string]map[string]drepo.TickHandler
	windows map[string]*models.Window

	archCh   chan archiveEntry
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type archiveEntry struct {
	symbol string
	candle models.Candle
}

// NewRouter creates a Router. The archive may be nil when candle archiving is
// not configured.
func NewRouter(feed drepo.MarketFeed, archive drepo.CandleArchive, metrics drepo.Metrics, log *applogger.Logger) *Router {
	return &Router{
		feed:    feed,
		archive: archive,
		log:     log,
		metrics: metrics,
		subs:    make(map[string]map[string]drepo.TickHandler),
		windows: make(map[string]*models.Window),
		archCh:  make(chan archiveEntry, archiveBufferSize),
		stop:    make(chan struct{}),
	}
}

// Start connects the upstream feed and begins draining the archive buffer.
func (r *Router) Start(ctx context.Context) {
	r.feed.Connect(ctx)
	if r.archive != nil {
		r.wg.Add(1)
		go r.archiveLoop(ctx)
	}
}

// SubscribeToSymbol registers a logical subscriber. The first subscriber for
// a symbol opens the upstream subscription; later ones share it.
func (r *Router) SubscribeToSymbol(symbol, subscriberID string, handler drepo.TickHandler) {
	r.mu.Lock()
	set, ok := r.subs[symbol]
	if !ok {
		set = make(map[string]drepo.TickHandler)
		r.subs[symbol] = set
	}
	first := len(set) == 0
	set[subscriberID] = handler
	r.mu.Unlock()

	if first {
		r.feed.Subscribe(symbol, func(c models.Candle) { r.onTick(symbol, c) })
	}
}

// UnsubscribeFromSymbol removes a logical subscriber. The upstream
// subscription closes once no subscribers remain; removed callbacks stop
// receiving ticks immediately either way.
func (r *Router) UnsubscribeFromSymbol(symbol, subscriberID string) {
	r.mu.Lock()
	set, ok := r.subs[symbol]
	if ok {
		delete(set, subscriberID)
	}
	last := ok && len(set) == 0
	if last {
		delete(r.subs, symbol)
	}
	r.mu.Unlock()

	if last {
		r.feed.Unsubscribe(symbol)
	}
}

// GetHistoricalData delegates a one-shot backfill request to the feed.
func (r *Router) GetHistoricalData(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	return r.feed.FetchHistoricalData(ctx, symbol, interval, limit)
}

// Recent returns the router's rolling window for a symbol, oldest first.
func (r *Router) Recent(symbol string) []models.Candle {
	r.mu.Lock()
	w := r.windows[symbol]
	r.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Snapshot()
}

// IsConnected reports upstream transport status.
func (r *Router) IsConnected() bool {
	return r.feed.IsConnected()
}

func (r *Router) onTick(symbol string, c models.Candle) {
	r.mu.Lock()
	w, ok := r.windows[symbol]
	if !ok {
		w = models.NewWindow(models.DefaultWindowSize)
		r.windows[symbol] = w
	}
	handlers := make([]drepo.TickHandler, 0, len(r.subs[symbol]))
	for _, h := range r.subs[symbol] {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	w.Append(c)
	for _, h := range handlers {
		h(c)
	}

	if r.archive != nil {
		select {
		case r.archCh <- archiveEntry{symbol: symbol, candle: c}:
		default:
			// archive is best-effort; never stall the feed path
			r.metrics.RecordError("archive_buffer_full")
		}
	}
}

func (r *Router) archiveLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(archiveFlushInterval)
	defer ticker.Stop()

	pending := make(map[string][]models.Candle)
	count := 0

	flush := func() {
		for symbol, cs := range pending {
			if err := r.archive.StoreBatch(ctx, symbol, cs); err != nil {
				r.log.Warn("candle archive flush failed", applogger.String("symbol", symbol), applogger.Error(err))
				r.metrics.RecordError("archive_flush")
			}
		}
		pending = make(map[string][]models.Candle)
		count = 0
	}

	// drain collects whatever is still buffered before a final flush.
	drain := func() {
		for {
			select {
			case e := <-r.archCh:
				pending[e.symbol] = append(pending[e.symbol], e.candle)
			default:
				return
			}
		}
	}

	for {
		select {
		case <-r.stop:
			drain()
			flush()
			return
		case <-ctx.Done():
			drain()
			flush()
			return
		case e := <-r.archCh:
			pending[e.symbol] = append(pending[e.symbol], e.candle)
			count++
			if count >= archiveFlushSize {
				flush()
			}
		case <-ticker.C:
			if count > 0 {
				flush()
			}
		}
	}
}

// Cleanup tears down the upstream connection and clears subscriber state.
// Process shutdown only.
func (r *Router) Cleanup() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.Lock()
	r.subs = make(map[string]map[string]drepo.TickHandler)
	r.windows = make(map[string]*models.Window)
	r.mu.Unlock()

	if err := r.feed.Close(); err != nil {
		r.log.Warn("feed close error", applogger.Error(err))
	}
}
