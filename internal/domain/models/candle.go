package models

import (
	"math"
	"time"
)

// Candle represents one OHLCV interval for a symbol. Timestamp is the open
// time of the interval in milliseconds since epoch, monotonically increasing
// per symbol.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the candle open time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp)
}

// Normalize widens High/Low so the candle body always fits inside the wick
// range. Upstream feeds occasionally deliver candles that violate this; the
// normalizer repairs them best-effort instead of dropping data.
func (c Candle) Normalize() Candle {
	body := math.Max(c.Open, c.Close)
	if c.High < body {
		c.High = body
	}
	body = math.Min(c.Open, c.Close)
	if c.Low > body {
		c.Low = body
	}
	return c
}

// Valid reports whether the candle carries usable data.
func (c Candle) Valid() bool {
	if c.Timestamp <= 0 {
		return false
	}
	if c.Open < 0 || c.High < 0 || c.Low < 0 || c.Close < 0 || c.Volume < 0 {
		return false
	}
	return true
}
