package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	xhttp "Momentum/pkg/http"
	applogger "Momentum/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	defaultWebSocketURL   = "wss://stream.binance.com:9443/ws"
	defaultRESTURL        = "https://api.binance.com"
	defaultKlineInterval  = "1m"
	defaultReconnectDelay = 5 * time.Second
)

// Client implements a MarketFeed backed by the Binance kline stream. One
// upstream subscription exists per symbol; fan-out to multiple logical
// subscribers is the router's job.
type Client struct {
	wsURL          string
	restURL        string
	klineInterval  string
	reconnectDelay time.Duration
	log            *applogger.Logger
	metrics        drepo.Metrics
	http           *xhttp.Client

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	handlers  map[string]drepo.TickHandler
	nextID    int64
	closed    chan struct{}
	closeOnce sync.Once
}

// Option configures Client.
type Option func(*Client)

// WithWebSocketURL overrides the stream endpoint.
func WithWebSocketURL(u string) Option {
	return func(c *Client) { c.wsURL = u }
}

// WithRESTURL overrides the REST endpoint used for backfill.
func WithRESTURL(u string) Option {
	return func(c *Client) { c.restURL = u }
}

// WithKlineInterval sets the stream candle resolution.
func WithKlineInterval(iv string) Option {
	return func(c *Client) {
		if iv != "" {
			c.klineInterval = iv
		}
	}
}

// WithReconnectDelay sets the fixed backoff between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Binance market feed client.
func New(log *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		wsURL:          defaultWebSocketURL,
		restURL:        defaultRESTURL,
		klineInterval:  defaultKlineInterval,
		reconnectDelay: defaultReconnectDelay,
		log:            log,
		handlers:       make(map[string]drepo.TickHandler),
		closed:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
	return c
}

// FormatSymbol converts "BTC/USDT" to the upstream "BTCUSDT" form.
func FormatSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// Connect starts the connection loop. Any transport-level close or error
// schedules a reconnect after the fixed backoff and retries indefinitely; the
// loop ends only when ctx is canceled or Close is called.
func (c *Client) Connect(ctx context.Context) {
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		default:
		}

		if err := c.dial(ctx); err != nil {
			c.log.Warn("feed connect failed, retrying", applogger.Error(err))
			c.recordError("feed_connect")
			if !c.wait(ctx) {
				return
			}
			continue
		}

		c.readLoop()
		c.setDisconnected()
		c.log.Warn("feed disconnected, reconnecting")
		if !c.wait(ctx) {
			return
		}
	}
}

// wait sleeps for the reconnect delay; false means the client is shutting down.
func (c *Client) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.closed:
		return false
	case <-time.After(c.reconnectDelay):
		return true
	}
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("binance dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	streams := make([]string, 0, len(c.handlers))
	for sym := range c.handlers {
		streams = append(streams, c.streamName(sym))
	}
	c.mu.Unlock()

	c.log.Info("feed connected", applogger.String("url", c.wsURL))

	// replay registrations collected while disconnected
	if len(streams) > 0 {
		if err := c.writeControl("SUBSCRIBE", streams); err != nil {
			_ = conn.Close()
			return fmt.Errorf("binance resubscribe: %w", err)
		}
	}
	return nil
}

// klineEvent is the upstream kline message shape. Numeric fields arrive as
// strings.
type klineEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
	} `json:"k"`
}

func (c *Client) readLoop() {
	for {
		conn := c.currentConn()
		if conn == nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var ev klineEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Debug("feed message dropped", applogger.Error(err))
			c.recordError("feed_malformed")
			continue
		}
		if ev.Event != "kline" {
			continue
		}

		candle, err := normalizeKline(ev)
		if err != nil {
			c.log.Warn("feed kline dropped", applogger.String("symbol", ev.Symbol), applogger.Error(err))
			c.recordError("feed_malformed")
			continue
		}

		c.mu.Lock()
		handler := c.handlers[ev.Symbol]
		c.mu.Unlock()
		if handler != nil {
			handler(candle)
		}
		if c.metrics != nil {
			c.metrics.RecordTick(ev.Symbol)
		}
	}
}

func normalizeKline(ev klineEvent) (models.Candle, error) {
	candle := models.Candle{Timestamp: ev.Kline.OpenTime}
	fields := []struct {
		raw  string
		dest *float64
	}{
		{ev.Kline.Open, &candle.Open},
		{ev.Kline.High, &candle.High},
		{ev.Kline.Low, &candle.Low},
		{ev.Kline.Close, &candle.Close},
		{ev.Kline.Volume, &candle.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("parse kline field %q: %w", f.raw, err)
		}
		*f.dest = v
	}
	if !candle.Valid() {
		return models.Candle{}, fmt.Errorf("kline out of range: %+v", candle)
	}
	return candle.Normalize(), nil
}

// Subscribe registers interest in a symbol. The control message goes out
// immediately when connected; otherwise the registration is replayed on the
// next successful connect.
func (c *Client) Subscribe(symbol string, handler drepo.TickHandler) {
	sym := FormatSymbol(symbol)

	c.mu.Lock()
	c.handlers[sym] = handler
	connected := c.connected
	c.mu.Unlock()

	if connected {
		if err := c.writeControl("SUBSCRIBE", []string{c.streamName(sym)}); err != nil {
			c.log.Warn("subscribe send failed", applogger.String("symbol", sym), applogger.Error(err))
		}
	}
}

// Unsubscribe removes interest in a symbol.
func (c *Client) Unsubscribe(symbol string) {
	sym := FormatSymbol(symbol)

	c.mu.Lock()
	delete(c.handlers, sym)
	connected := c.connected
	c.mu.Unlock()

	if connected {
		if err := c.writeControl("UNSUBSCRIBE", []string{c.streamName(sym)}); err != nil {
			c.log.Warn("unsubscribe send failed", applogger.String("symbol", sym), applogger.Error(err))
		}
	}
}

func (c *Client) streamName(formattedSymbol string) string {
	return strings.ToLower(formattedSymbol) + "@kline_" + c.klineInterval
}

type controlMessage struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

func (c *Client) writeControl(method string, params []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("binance not connected")
	}
	c.nextID++
	return c.conn.WriteJSON(controlMessage{Method: method, Params: params, ID: c.nextID})
}

// FetchHistoricalData performs a one-shot kline request for backfill.
func (c *Client) FetchHistoricalData(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	if interval == "" {
		interval = c.klineInterval
	}
	if limit <= 0 {
		limit = models.DefaultWindowSize
	}

	var raw []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.restURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {FormatSymbol(symbol)},
			"interval": {interval},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s: %w", symbol, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("invalid kline data for %s: expected a sequence: %w", symbol, err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := parseKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("invalid kline row for %s: %w", symbol, err)
		}
		candles = append(candles, candle.Normalize())
	}
	return candles, nil
}

// parseKlineRow decodes one REST kline row: open time followed by OHLCV as
// strings.
func parseKlineRow(row json.RawMessage) (models.Candle, error) {
	var fields []any
	if err := json.Unmarshal(row, &fields); err != nil {
		return models.Candle{}, err
	}
	if len(fields) < 6 {
		return models.Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(fields))
	}

	ts, ok := fields[0].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("open time is not numeric")
	}
	candle := models.Candle{Timestamp: int64(ts)}

	dests := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
	for i, dest := range dests {
		s, ok := fields[i+1].(string)
		if !ok {
			return models.Candle{}, fmt.Errorf("field %d is not a string", i+1)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, err
		}
		*dest = v
	}
	return candle, nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) setDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) recordError(kind string) {
	if c.metrics != nil {
		c.metrics.RecordError(kind)
	}
}

// IsConnected indicates transport status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears down the connection and stops the reconnect loop.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	c.setDisconnected()
	return nil
}
