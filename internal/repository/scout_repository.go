package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	pkgcache "Momentum/pkg/cache"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DatabasePool is the subset of pgxpool.Pool the repositories use. The
// narrow interface keeps the stores testable against a mock pool.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("repository: record not found")

const scoutCacheTTL = 30 * time.Second

const scoutColumns = `id, user_id, name, description, tier, strategy, config, symbols,
	scan_interval, status, total_signals, success_rate, last_signal_at, created_at, updated_at`

// ScoutRepository implements ScoutStore on PostgreSQL with an optional
// read-through cache. Cached entries carry short TTLs; write paths invalidate
// what they can reach and let the TTL cover the rest.
type ScoutRepository struct {
	pool  DatabasePool
	cache pkgcache.Service
}

// NewScoutRepository creates a scout store. The cache may be nil.
func NewScoutRepository(pool DatabasePool, cache pkgcache.Service) drepo.ScoutStore {
	return &ScoutRepository{pool: pool, cache: cache}
}

func scoutKey(id string) string { return pkgcache.GenerateKey("scout", id) }

func scoutUserKey(userID string) string { return pkgcache.GenerateKey("scouts:user", userID) }

func (r *ScoutRepository) Create(ctx context.Context, s *models.Scout) error {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO scouts (id, user_id, name, description, tier, strategy, config, symbols,
			scan_interval, status, total_signals, success_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())`,
		s.ID, s.UserID, s.Name, s.Description, s.Tier, s.Strategy, config, s.Symbols,
		s.Interval, s.Status, s.TotalSignals, s.SuccessRate,
	)
	if err != nil {
		return fmt.Errorf("insert scout: %w", err)
	}
	r.invalidate(ctx, scoutUserKey(s.UserID))
	return nil
}

func (r *ScoutRepository) FindByID(ctx context.Context, id string) (*models.Scout, error) {
	if s, ok := cacheGet[models.Scout](ctx, r.cache, scoutKey(id)); ok {
		return s, nil
	}

	row := r.pool.QueryRow(ctx, `SELECT `+scoutColumns+` FROM scouts WHERE id = $1`, id)
	s, err := scanScout(row)
	if err != nil {
		return nil, err
	}

	cacheSet(ctx, r.cache, scoutKey(id), s, scoutCacheTTL)
	return s, nil
}

func (r *ScoutRepository) FindByUser(ctx context.Context, userID string) ([]*models.Scout, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scoutColumns+` FROM scouts WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query scouts: %w", err)
	}
	defer rows.Close()

	var scouts []*models.Scout
	for rows.Next() {
		s, err := scanScout(rows)
		if err != nil {
			return nil, err
		}
		scouts = append(scouts, s)
	}
	return scouts, rows.Err()
}

func (r *ScoutRepository) FindByStatus(ctx context.Context, status models.ScoutStatus) ([]*models.Scout, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scoutColumns+` FROM scouts WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query scouts by status: %w", err)
	}
	defer rows.Close()

	var scouts []*models.Scout
	for rows.Next() {
		s, err := scanScout(rows)
		if err != nil {
			return nil, err
		}
		scouts = append(scouts, s)
	}
	return scouts, rows.Err()
}

func (r *ScoutRepository) Update(ctx context.Context, s *models.Scout) error {
	config, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE scouts SET name = $2, description = $3, config = $4, symbols = $5,
			scan_interval = $6, updated_at = now()
		WHERE id = $1`,
		s.ID, s.Name, s.Description, config, s.Symbols, s.Interval,
	)
	if err != nil {
		return fmt.Errorf("update scout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, scoutKey(s.ID), scoutUserKey(s.UserID))
	return nil
}

func (r *ScoutRepository) UpdateStatus(ctx context.Context, id string, status models.ScoutStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scouts SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update scout status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, scoutKey(id))
	return nil
}

func (r *ScoutRepository) RecordSignal(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE scouts SET total_signals = total_signals + 1, last_signal_at = now(),
			updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, scoutKey(id))
	return nil
}

func (r *ScoutRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete scout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, scoutKey(id))
	return nil
}

func (r *ScoutRepository) invalidate(ctx context.Context, keys ...string) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, keys...)
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScout(row scannable) (*models.Scout, error) {
	var (
		s      models.Scout
		config []byte
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Description, &s.Tier, &s.Strategy, &config, &s.Symbols,
		&s.Interval, &s.Status, &s.TotalSignals, &s.SuccessRate, &s.LastSignalAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan scout: %w", err)
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &s.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	return &s, nil
}

// cacheGet reads a JSON-encoded value from the cache. Values are stored as
// strings so both the memory and the Redis backends behave the same.
func cacheGet[T any](ctx context.Context, c pkgcache.Service, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	var raw string
	if err := c.Get(ctx, key, &raw); err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return &v, true
}

func cacheSet(ctx context.Context, c pkgcache.Service, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, string(raw), ttl)
}
