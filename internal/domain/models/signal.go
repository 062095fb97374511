package models

import "time"

// Strategy identifies a detection strategy. Strategies without a detector
// implementation are valid configuration values that simply never produce
// signals.
type Strategy string

const (
	StrategyEMACrossover      Strategy = "EMA_CROSSOVER"
	StrategyRSIDivergence     Strategy = "RSI_DIVERGENCE"
	StrategySupportResistance Strategy = "SUPPORT_RESISTANCE"
	StrategyVolumeBreakout    Strategy = "VOLUME_BREAKOUT"
)

// Direction of a trade recommendation.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// SignalStatus is the lifecycle state of a persisted signal.
type SignalStatus string

const (
	SignalStatusActive    SignalStatus = "ACTIVE"
	SignalStatusCompleted SignalStatus = "COMPLETED"
)

// SignalOutcome is set only when a signal completes.
type SignalOutcome string

const (
	OutcomeTargetHit     SignalOutcome = "TARGET_HIT"
	OutcomeStoppedOut    SignalOutcome = "STOPPED_OUT"
	OutcomePartialProfit SignalOutcome = "PARTIAL_PROFIT"
)

// Signal is a persisted, directional trade recommendation. Signals are
// immutable once created; the completion transition is owned elsewhere.
type Signal struct {
	ID          string             `json:"id"`
	Symbol      string             `json:"symbol"`
	Timeframe   string             `json:"timeframe"`
	Type        Strategy           `json:"type"`
	Direction   Direction          `json:"direction"`
	EntryPrice  float64            `json:"entryPrice"`
	TargetPrice []float64          `json:"targetPrice"`
	StopLoss    float64            `json:"stopLoss"`
	Confidence  int                `json:"confidence"`
	Status      SignalStatus       `json:"status"`
	Outcome     *SignalOutcome     `json:"outcome,omitempty"`
	Indicators  map[string]float64 `json:"indicators"`
	Notes       string             `json:"notes"`
	UserID      string             `json:"userId"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// SignalDraft is the outcome of pure strategy evaluation, before identity and
// persistence are attached by the monitor.
type SignalDraft struct {
	Symbol      string
	Timeframe   string
	Type        Strategy
	Direction   Direction
	EntryPrice  float64
	TargetPrice []float64
	StopLoss    float64
	Confidence  int
	Indicators  map[string]float64
	Notes       string
}
