package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"Momentum/internal/domain/models"
)

func TestDetectEndpointCreatesSignal(t *testing.T) {
	e := newEnv(t)
	e.market.history["BTC/USDT"] = history(60, 110)

	c, rec := newCtx(http.MethodPost, "/api/signals/detect",
		`{"symbol":"BTC/USDT","strategy":"EMA_CROSSOVER"}`)
	if err := e.gh.Detect(c); err != nil {
		t.Fatalf("detect: %v", err)
	}

	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	var body struct {
		Detected bool           `json:"detected"`
		Signal   *models.Signal `json:"signal"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !body.Detected || body.Signal == nil {
		t.Fatalf("detected = %v, want a signal", body.Detected)
	}
	if body.Signal.Direction != models.DirectionLong {
		t.Fatalf("direction = %s, want LONG", body.Signal.Direction)
	}
	if e.signals.count() != 1 {
		t.Fatalf("persisted = %d signals, want 1", e.signals.count())
	}
}

func TestDetectEndpointNoCondition(t *testing.T) {
	e := newEnv(t)
	e.market.history["BTC/USDT"] = history(60, 100)

	c, rec := newCtx(http.MethodPost, "/api/signals/detect",
		`{"symbol":"BTC/USDT","strategy":"EMA_CROSSOVER"}`)
	if err := e.gh.Detect(c); err != nil {
		t.Fatalf("detect: %v", err)
	}

	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	var body struct {
		Detected bool `json:"detected"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if body.Detected {
		t.Fatal("flat history must not detect")
	}
	if e.signals.count() != 0 {
		t.Fatalf("persisted = %d signals, want 0", e.signals.count())
	}
}

func TestSignalsListEmpty(t *testing.T) {
	e := newEnv(t)
	c, rec := newCtx(http.MethodGet, "/api/signals", "")
	if err := e.gh.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	var signals []*models.Signal
	if err := json.Unmarshal(env.Data, &signals); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("signals = %d, want 0", len(signals))
	}
}
