package repository

import (
	"context"
	"testing"
	"time"

	"Momentum/internal/domain/models"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalRepositoryCreate(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool, nil)
	sig := &models.Signal{
		ID:          "7a1e0f46-0000-0000-0000-000000000001",
		Symbol:      "BTC/USDT",
		Timeframe:   "4h",
		Type:        models.StrategyEMACrossover,
		Direction:   models.DirectionLong,
		EntryPrice:  110,
		TargetPrice: []float64{112.2, 114.4, 116.6},
		StopLoss:    107.8,
		Confidence:  75,
		Status:      models.SignalStatusActive,
		Indicators:  map[string]float64{"ema20": 100.95},
		Notes:       "Automated EMA_CROSSOVER signal generated a LONG signal",
		UserID:      "user-1",
		CreatedAt:   time.Now().UTC(),
	}

	mockPool.ExpectExec("INSERT INTO signals").
		WithArgs(sig.ID, sig.Symbol, sig.Timeframe, sig.Type, sig.Direction, sig.EntryPrice,
			sig.TargetPrice, sig.StopLoss, sig.Confidence, sig.Status,
			[]byte(`{"ema20":100.95}`), sig.Notes, sig.UserID, sig.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), sig))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSignalRepositoryFindByUser(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool, nil)
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "symbol", "timeframe", "type", "direction", "entry_price", "target_price",
		"stop_loss", "confidence", "status", "outcome", "indicators", "notes", "user_id", "created_at",
	}).AddRow(
		"sig-1", "BTC/USDT", "4h", "EMA_CROSSOVER", "LONG", 110.0,
		[]float64{112.2, 114.4, 116.6}, 107.8, 75, "ACTIVE", (*models.SignalOutcome)(nil),
		[]byte(`{"ema20":100.95,"ema50":100.39}`), "notes", "user-1", now,
	)

	mockPool.ExpectQuery("SELECT (.+) FROM signals").
		WithArgs("user-1", 50).
		WillReturnRows(rows)

	signals, err := repo.FindByUser(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	s := signals[0]
	assert.Equal(t, "sig-1", s.ID)
	assert.Equal(t, models.DirectionLong, s.Direction)
	assert.Equal(t, []float64{112.2, 114.4, 116.6}, s.TargetPrice)
	assert.InDelta(t, 100.95, s.Indicators["ema20"], 1e-9)
	assert.Nil(t, s.Outcome)
}

func TestSignalRepositoryFindByUserEmpty(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewSignalRepository(mockPool, nil)
	mockPool.ExpectQuery("SELECT (.+) FROM signals").
		WithArgs("user-2", 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "symbol", "timeframe", "type", "direction", "entry_price", "target_price",
			"stop_loss", "confidence", "status", "outcome", "indicators", "notes", "user_id", "created_at",
		}))

	signals, err := repo.FindByUser(context.Background(), "user-2", 10)
	require.NoError(t, err)
	assert.Empty(t, signals)
}
