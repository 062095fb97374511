package repository

import (
	"context"
	"time"

	"Momentum/internal/domain/models"
)

// TickHandler receives one normalized candle from the live feed.
type TickHandler func(models.Candle)

// MarketFeed is a streaming connection to the upstream exchange. Connect
// never gives up: transport failures schedule a reconnect and registered
// subscriptions are replayed on the next successful connect.
type MarketFeed interface {
	Connect(ctx context.Context)
	Subscribe(symbol string, handler TickHandler)
	Unsubscribe(symbol string)
	FetchHistoricalData(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	IsConnected() bool
	Close() error
}

// ScoutStore persists scout records. The monitor touches only status and
// signal counters; CRUD belongs to the control surface.
type ScoutStore interface {
	Create(ctx context.Context, s *models.Scout) error
	FindByID(ctx context.Context, id string) (*models.Scout, error)
	FindByUser(ctx context.Context, userID string) ([]*models.Scout, error)
	FindByStatus(ctx context.Context, status models.ScoutStatus) ([]*models.Scout, error)
	Update(ctx context.Context, s *models.Scout) error
	UpdateStatus(ctx context.Context, id string, status models.ScoutStatus) error
	RecordSignal(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// SignalStore persists detected signals. Signals are create-only here; the
// completion transition is owned by an external collaborator.
type SignalStore interface {
	Create(ctx context.Context, s *models.Signal) error
	FindByUser(ctx context.Context, userID string, limit int) ([]*models.Signal, error)
}

// CandleArchive is an append-only store of normalized candles for later
// backtesting and charting.
type CandleArchive interface {
	Store(ctx context.Context, symbol string, c models.Candle) error
	StoreBatch(ctx context.Context, symbol string, cs []models.Candle) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Candle, error)
	Close() error
}

// EventPublisher pushes signal events to an external bus in addition to the
// in-process broadcast hub. Implementations must be safe to call from the
// monitor's runner goroutines.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.StreamEvent) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordTick(symbol string)
	RecordSignal(strategy, direction string)
	SetActiveScouts(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
