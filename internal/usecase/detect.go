package usecase

import (
	"context"
	"fmt"

	"Momentum/internal/detector"
	"Momentum/internal/domain/models"
	applogger "Momentum/pkg/logger"
)

// DetectUseCase runs one-shot signal detection outside the scheduled scout
// loop, for interactive testing from the control surface.
type DetectUseCase struct {
	market MarketData
	det    Evaluator
	writer *SignalWriter
	log    *applogger.Logger
}

// NewDetectUseCase creates a DetectUseCase.
func NewDetectUseCase(market MarketData, det Evaluator, writer *SignalWriter, log *applogger.Logger) *DetectUseCase {
	return &DetectUseCase{market: market, det: det, writer: writer, log: log}
}

// Detect evaluates the strategy against the freshest window available for the
// symbol and, when a condition holds, persists and broadcasts the signal just
// like the scheduled path. Returns nil without error when no condition holds.
func (uc *DetectUseCase) Detect(ctx context.Context, symbol, userID string, strategy models.Strategy) (*models.Signal, error) {
	window := uc.market.Recent(symbol)
	if len(window) < detector.MinCandles(strategy) {
		hist, err := uc.market.GetHistoricalData(ctx, symbol, "", models.DefaultWindowSize)
		if err != nil {
			return nil, fmt.Errorf("detect %s: %w", symbol, err)
		}
		window = hist
	}
	if len(window) < detector.MinCandles(strategy) {
		return nil, fmt.Errorf("detect %s: %d candles available, %d required",
			symbol, len(window), detector.MinCandles(strategy))
	}

	uc.log.Info("one-shot detection",
		applogger.String("symbol", symbol),
		applogger.String("strategy", string(strategy)),
	)

	draft := uc.det.Evaluate(window, symbol, userID, strategy)
	if draft == nil {
		return nil, nil
	}
	return uc.writer.Accept(ctx, nil, draft, userID), nil
}
