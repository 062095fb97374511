package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Momentum/internal/domain/models"
	applogger "Momentum/pkg/logger"

	"github.com/gorilla/websocket"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestFormatSymbol(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT": "BTCUSDT",
		"eth/usdt": "ETHUSDT",
		"SOLUSDT":  "SOLUSDT",
	}
	for in, want := range cases {
		if got := FormatSymbol(in); got != want {
			t.Fatalf("FormatSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStreamName(t *testing.T) {
	c := New(testLogger(t), WithKlineInterval("5m"))
	if got := c.streamName("BTCUSDT"); got != "btcusdt@kline_5m" {
		t.Fatalf("stream name = %q", got)
	}
}

func TestNormalizeKline(t *testing.T) {
	ev := klineEvent{Event: "kline", Symbol: "BTCUSDT"}
	ev.Kline.OpenTime = 1700000000000
	ev.Kline.Open = "100.5"
	ev.Kline.High = "99"
	ev.Kline.Low = "101"
	ev.Kline.Close = "102"
	ev.Kline.Volume = "7.25"

	c, err := normalizeKline(ev)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if c.Open != 100.5 || c.Close != 102 || c.Volume != 7.25 {
		t.Fatalf("unexpected candle %+v", c)
	}
	// wick repair: high must cover the body
	if c.High != 102 || c.Low != 100.5 {
		t.Fatalf("candle not normalized %+v", c)
	}
}

func TestNormalizeKlineRejectsGarbage(t *testing.T) {
	ev := klineEvent{Event: "kline", Symbol: "BTCUSDT"}
	ev.Kline.OpenTime = 1700000000000
	ev.Kline.Open = "abc"
	ev.Kline.High = "1"
	ev.Kline.Low = "1"
	ev.Kline.Close = "1"
	ev.Kline.Volume = "1"
	if _, err := normalizeKline(ev); err == nil {
		t.Fatalf("expected parse error")
	}

	ev.Kline.Open = "1"
	ev.Kline.OpenTime = 0
	if _, err := normalizeKline(ev); err == nil {
		t.Fatalf("expected validity error for zero timestamp")
	}
}

func TestParseKlineRow(t *testing.T) {
	row := json.RawMessage(`[1700000000000, "100", "105", "99", "103", "12.5", 1700000059999, "x", 42, "y", "z", "0"]`)
	c, err := parseKlineRow(row)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Timestamp != 1700000000000 || c.Open != 100 || c.High != 105 || c.Low != 99 || c.Close != 103 || c.Volume != 12.5 {
		t.Fatalf("unexpected candle %+v", c)
	}
}

func TestParseKlineRowErrors(t *testing.T) {
	cases := []string{
		`[1700000000000, "100", "105"]`,
		`["nope", "100", "105", "99", "103", "12.5"]`,
		`[1700000000000, 100, "105", "99", "103", "12.5"]`,
		`{"not": "a row"}`,
	}
	for _, raw := range cases {
		if _, err := parseKlineRow(json.RawMessage(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestFetchHistoricalData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %s", got)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			[1700000000000, "100", "105", "99", "103", "12.5", 0, "0", 0, "0", "0", "0"],
			[1700000060000, "103", "104", "102", "102.5", "3", 0, "0", 0, "0", "0", "0"]
		]`))
	}))
	defer srv.Close()

	c := New(testLogger(t), WithRESTURL(srv.URL))
	candles, err := c.FetchHistoricalData(context.Background(), "BTC/USDT", "1m", 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles", len(candles))
	}
	if candles[0].Close != 103 || candles[1].Timestamp != 1700000060000 {
		t.Fatalf("unexpected candles %+v", candles)
	}
}

func TestFetchHistoricalDataRejectsNonSequence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": -1121, "msg": "Invalid symbol."}`))
	}))
	defer srv.Close()

	c := New(testLogger(t), WithRESTURL(srv.URL))
	_, err := c.FetchHistoricalData(context.Background(), "NOPE/USDT", "1m", 10)
	if err == nil || !strings.Contains(err.Error(), "expected a sequence") {
		t.Fatalf("expected sequence error, got %v", err)
	}
}

func TestStreamDeliversTicks(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan controlMessage, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg controlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		subscribed <- msg

		_ = conn.WriteJSON(map[string]any{
			"e": "kline",
			"s": "BTCUSDT",
			"k": map[string]any{
				"t": 1700000000000,
				"o": "100", "h": "101", "l": "99", "c": "100.5", "v": "3",
			},
		})
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(testLogger(t), WithWebSocketURL(wsURL), WithReconnectDelay(50*time.Millisecond))
	defer c.Close()

	ticks := make(chan models.Candle, 1)
	c.Subscribe("BTC/USDT", func(candle models.Candle) { ticks <- candle })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)

	select {
	case msg := <-subscribed:
		if msg.Method != "SUBSCRIBE" || len(msg.Params) != 1 || msg.Params[0] != "btcusdt@kline_1m" {
			t.Fatalf("unexpected control message %+v", msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no subscription replayed on connect")
	}

	select {
	case candle := <-ticks:
		if candle.Close != 100.5 || candle.Timestamp != 1700000000000 {
			t.Fatalf("unexpected candle %+v", candle)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("tick not delivered")
	}

	if !c.IsConnected() {
		t.Fatalf("client should report connected")
	}
}
