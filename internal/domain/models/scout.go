package models

import (
	"strconv"
	"time"
)

// ScoutStatus is the persisted lifecycle state of a scout.
type ScoutStatus string

const (
	ScoutStatusInactive ScoutStatus = "INACTIVE"
	ScoutStatusActive   ScoutStatus = "ACTIVE"
	ScoutStatusError    ScoutStatus = "ERROR"
)

// ScoutTier is a capability class gating which strategies and how many
// symbols a scout may use. Enforcement lives in the control surface, not in
// the monitor.
type ScoutTier string

const (
	TierBasic ScoutTier = "BASIC"
	TierPro   ScoutTier = "PRO"
	TierElite ScoutTier = "ELITE"
)

// Scout is a user-configured background monitoring task: a set of symbols
// scanned with one strategy at a fixed interval.
type Scout struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Tier         ScoutTier      `json:"tier"`
	Strategy     Strategy       `json:"strategy"`
	Config       map[string]any `json:"config"`
	Symbols      []string       `json:"symbols"`
	Interval     string         `json:"interval"`
	Status       ScoutStatus    `json:"status"`
	TotalSignals int            `json:"totalSignals"`
	SuccessRate  float64        `json:"successRate"`
	LastSignalAt *time.Time     `json:"lastSignalAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// DefaultScanInterval is used when a scout interval cannot be parsed.
const DefaultScanInterval = 15 * time.Second

// ParseInterval parses an interval string of the form "<int><unit>" where
// unit is s, m or h. Anything it cannot read falls back to
// DefaultScanInterval; the leniency is deliberate so a misconfigured scout
// still scans instead of never firing.
func ParseInterval(s string) time.Duration {
	if len(s) < 2 {
		return DefaultScanInterval
	}
	v, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || v <= 0 {
		return DefaultScanInterval
	}
	switch s[len(s)-1] {
	case 's':
		return time.Duration(v) * time.Second
	case 'm':
		return time.Duration(v) * time.Minute
	case 'h':
		return time.Duration(v) * time.Hour
	default:
		return DefaultScanInterval
	}
}

// ScanInterval returns the scout's parsed scan period.
func (s *Scout) ScanInterval() time.Duration {
	return ParseInterval(s.Interval)
}

// DefaultConfig returns the server-filled configuration for a strategy. New
// scouts are created with these values unless the request overrides them.
func DefaultConfig(strategy Strategy) map[string]any {
	switch strategy {
	case StrategyEMACrossover:
		return map[string]any{
			"fastEMA":           20,
			"slowEMA":           50,
			"volumeThreshold":   1.5,
			"minimumConfidence": 75,
		}
	case StrategyRSIDivergence:
		return map[string]any{
			"rsiPeriod":         14,
			"overbought":        70,
			"oversold":          30,
			"divergencePeriods": 10,
		}
	case StrategySupportResistance:
		return map[string]any{
			"periods":        20,
			"sensitivity":    2,
			"minTouchPoints": 3,
		}
	case StrategyVolumeBreakout:
		return map[string]any{
			"volumeMultiplier":     2,
			"priceChangeThreshold": 1,
			"consolidationPeriods": 5,
		}
	default:
		return map[string]any{}
	}
}
