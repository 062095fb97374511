package detector

import (
	"fmt"

	"Momentum/internal/domain/models"
)

const (
	fastPeriod       = 20
	slowPeriod       = 50
	volumePeriod     = 20
	volumeMultiplier = 2.0

	// Confidence is a strategy-independent constant for now; a computed
	// confidence model is a planned replacement, not a tuning knob.
	defaultConfidence = 75

	signalTimeframe = "4h"
)

// MinCandles returns the minimum window length evaluation needs for a
// strategy. Callers skip analysis below this instead of calling and failing.
func MinCandles(strategy models.Strategy) int {
	switch strategy {
	case models.StrategyEMACrossover:
		return slowPeriod + 2
	case models.StrategyVolumeBreakout:
		return volumePeriod + 1
	default:
		return 2
	}
}

// verdict is the raw outcome of one strategy check. An empty direction means
// no tradeable condition held.
type verdict struct {
	direction  models.Direction
	indicators map[string]float64
}

// Detector evaluates rolling windows of candles against trading strategies.
// It is pure: identity, persistence and broadcasting are the monitor's
// concern.
type Detector struct{}

// New creates a Detector.
func New() *Detector { return &Detector{} }

// Evaluate runs the strategy over the window and returns a draft signal, or
// nil when no tradeable condition holds. Strategies without an implementation
// return nil as a stub path so new strategies can ship incrementally without
// breaking the scheduler. Windows shorter than MinCandles return nil.
func (d *Detector) Evaluate(window []models.Candle, symbol, userID string, strategy models.Strategy) *models.SignalDraft {
	if len(window) < MinCandles(strategy) {
		return nil
	}

	var v verdict
	switch strategy {
	case models.StrategyEMACrossover:
		v = detectEMACrossover(window)
	case models.StrategyVolumeBreakout:
		v = detectVolumeBreakout(window)
	default:
		return nil
	}
	if v.direction == "" {
		return nil
	}

	entry := window[len(window)-1].Close
	stop, targets := levels(entry, v.direction)

	return &models.SignalDraft{
		Symbol:      symbol,
		Timeframe:   signalTimeframe,
		Type:        strategy,
		Direction:   v.direction,
		EntryPrice:  entry,
		TargetPrice: targets,
		StopLoss:    stop,
		Confidence:  defaultConfidence,
		Indicators:  v.indicators,
		Notes:       fmt.Sprintf("Automated %s signal generated a %s signal", strategy, v.direction),
	}
}

// detectEMACrossover reports LONG when the fast EMA crosses above the slow
// EMA between the previous and the current candle, SHORT on the mirror
// crossing. No crossover means no signal.
func detectEMACrossover(cs []models.Candle) verdict {
	closes := make([]float64, len(cs))
	for i, c := range cs {
		closes[i] = c.Close
	}
	fast := EMA(closes, fastPeriod)
	slow := EMA(closes, slowPeriod)

	curFast, prevFast := fast[len(fast)-1], fast[len(fast)-2]
	curSlow, prevSlow := slow[len(slow)-1], slow[len(slow)-2]

	v := verdict{indicators: map[string]float64{
		"ema20": curFast,
		"ema50": curSlow,
	}}
	switch {
	case prevFast <= prevSlow && curFast > curSlow:
		v.direction = models.DirectionLong
	case prevFast >= prevSlow && curFast < curSlow:
		v.direction = models.DirectionShort
	}
	return v
}

// detectVolumeBreakout reports a signal when the latest volume strictly
// exceeds twice the trailing average; direction follows the sign of the
// latest close-to-close change.
func detectVolumeBreakout(cs []models.Candle) verdict {
	volumes := make([]float64, len(cs))
	for i, c := range cs {
		volumes[i] = c.Volume
	}
	avg := AverageVolume(volumes, volumePeriod)
	current := volumes[len(volumes)-1]

	prevClose := cs[len(cs)-2].Close
	priceChange := (cs[len(cs)-1].Close - prevClose) / prevClose

	v := verdict{indicators: map[string]float64{
		"currentVolume": current,
		"avgVolume":     avg,
		"priceChange":   priceChange,
	}}
	if current > avg*volumeMultiplier {
		if priceChange > 0 {
			v.direction = models.DirectionLong
		} else {
			v.direction = models.DirectionShort
		}
	}
	return v
}

// levels derives the stop-loss and the three graduated targets from the entry
// price: 2% against the direction for the stop, 2/4/6% in the favorable
// direction for the targets.
func levels(entry float64, dir models.Direction) (float64, []float64) {
	if dir == models.DirectionLong {
		return entry * 0.98, []float64{entry * 1.02, entry * 1.04, entry * 1.06}
	}
	return entry * 1.02, []float64{entry * 0.98, entry * 0.96, entry * 0.94}
}
