package usecase

import (
	"context"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	applogger "Momentum/pkg/logger"

	"github.com/google/uuid"
)

// Notifier delivers stream events to live subscribers.
type Notifier interface {
	Broadcast(ev models.StreamEvent)
}

// SignalWriter turns accepted drafts into persisted, broadcast signals. It is
// shared by the scheduled monitor path and the one-shot detect path.
type SignalWriter struct {
	signals   drepo.SignalStore
	scouts    drepo.ScoutStore
	notifier  Notifier
	publisher drepo.EventPublisher
	metrics   drepo.Metrics
	log       *applogger.Logger
}

// NewSignalWriter creates a SignalWriter. The publisher may be nil when no
// external bus is configured.
func NewSignalWriter(
	signals drepo.SignalStore,
	scouts drepo.ScoutStore,
	notifier Notifier,
	publisher drepo.EventPublisher,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *SignalWriter {
	return &SignalWriter{
		signals:   signals,
		scouts:    scouts,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

// Accept persists a draft, updates the owning scout's counters when scout is
// non-nil, and emits the new-signal event. A persistence failure loses the
// signal for this cycle: it is logged and nil is returned, never raised.
// The next cycle will likely re-detect the same structural condition.
func (w *SignalWriter) Accept(ctx context.Context, scout *models.Scout, draft *models.SignalDraft, userID string) *models.Signal {
	sig := &models.Signal{
		ID:          uuid.NewString(),
		Symbol:      draft.Symbol,
		Timeframe:   draft.Timeframe,
		Type:        draft.Type,
		Direction:   draft.Direction,
		EntryPrice:  draft.EntryPrice,
		TargetPrice: draft.TargetPrice,
		StopLoss:    draft.StopLoss,
		Confidence:  draft.Confidence,
		Status:      models.SignalStatusActive,
		Indicators:  draft.Indicators,
		Notes:       draft.Notes,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := w.signals.Create(ctx, sig); err != nil {
		w.log.Error("signal persist failed",
			applogger.String("symbol", sig.Symbol),
			applogger.Error(err),
		)
		w.metrics.RecordError("signal_persist")
		return nil
	}

	if scout != nil {
		if err := w.scouts.RecordSignal(ctx, scout.ID); err != nil {
			w.log.Warn("scout counter update failed",
				applogger.String("scout", scout.ID),
				applogger.Error(err),
			)
		}
	}

	ev := models.StreamEvent{Type: models.EventNewSignal, Signal: sig}
	w.notifier.Broadcast(ev)
	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, ev); err != nil {
			w.log.Warn("signal event publish failed", applogger.Error(err))
			w.metrics.RecordError("signal_publish")
		}
	}

	w.metrics.RecordSignal(string(sig.Type), string(sig.Direction))
	w.log.Info("signal created",
		applogger.String("symbol", sig.Symbol),
		applogger.String("strategy", string(sig.Type)),
		applogger.String("direction", string(sig.Direction)),
	)
	return sig
}
