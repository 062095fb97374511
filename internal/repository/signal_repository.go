package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	pkgcache "Momentum/pkg/cache"
)

const signalColumns = `id, symbol, timeframe, type, direction, entry_price, target_price,
	stop_loss, confidence, status, outcome, indicators, notes, user_id, created_at`

// SignalRepository implements SignalStore on PostgreSQL. Listing goes through
// a short-lived per-user cache because the stream UI polls it on reconnect.
type SignalRepository struct {
	pool  DatabasePool
	cache pkgcache.Service
}

// NewSignalRepository creates a signal store. The cache may be nil.
func NewSignalRepository(pool DatabasePool, cache pkgcache.Service) drepo.SignalStore {
	return &SignalRepository{pool: pool, cache: cache}
}

func signalUserKey(userID string, limit int) string {
	return pkgcache.GenerateKeyWithParams("signals:user", userID, limit)
}

func (r *SignalRepository) Create(ctx context.Context, s *models.Signal) error {
	indicators, err := json.Marshal(s.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO signals (id, symbol, timeframe, type, direction, entry_price, target_price,
			stop_loss, confidence, status, indicators, notes, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.Symbol, s.Timeframe, s.Type, s.Direction, s.EntryPrice, s.TargetPrice,
		s.StopLoss, s.Confidence, s.Status, indicators, s.Notes, s.UserID, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.DeleteByPattern(ctx, pkgcache.BuildPattern(pkgcache.GenerateKey("signals:user", s.UserID)+":"))
	}
	return nil
}

func (r *SignalRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*models.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	key := signalUserKey(userID, limit)
	if cached, ok := cacheGet[[]*models.Signal](ctx, r.cache, key); ok {
		return *cached, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+signalColumns+` FROM signals
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.Signal
	for rows.Next() {
		var (
			s          models.Signal
			indicators []byte
		)
		err := rows.Scan(
			&s.ID, &s.Symbol, &s.Timeframe, &s.Type, &s.Direction, &s.EntryPrice,
			&s.TargetPrice, &s.StopLoss, &s.Confidence, &s.Status, &s.Outcome,
			&indicators, &s.Notes, &s.UserID, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if len(indicators) > 0 {
			if err := json.Unmarshal(indicators, &s.Indicators); err != nil {
				return nil, fmt.Errorf("unmarshal indicators: %w", err)
			}
		}
		signals = append(signals, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cacheSet(ctx, r.cache, key, signals, 10*time.Second)
	return signals, nil
}
