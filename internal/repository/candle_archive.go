package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
)

// CandleSchema is the archive table DDL, applied at startup.
var CandleSchema = []string{
	`CREATE TABLE IF NOT EXISTS candles (
		ts DateTime64(3),
		symbol LowCardinality(String),
		open Float64,
		high Float64,
		low Float64,
		close Float64,
		volume Float64
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts)`,
}

// ClickHouseArchive implements CandleArchive for ClickHouse.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates a candle archive on the given table.
func NewClickHouseArchive(db *sql.DB, table string) drepo.CandleArchive {
	if table == "" {
		table = "candles"
	}
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) Store(ctx context.Context, symbol string, c models.Candle) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err := a.db.ExecContext(ctx, q,
		time.UnixMilli(c.Timestamp), symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
	return err
}

func (a *ClickHouseArchive) StoreBatch(ctx context.Context, symbol string, cs []models.Candle) error {
	if len(cs) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to keep statements bounded.
	const chunkSize = 2000
	for start := 0; start < len(cs); start += chunkSize {
		end := start + chunkSize
		if end > len(cs) {
			end = len(cs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, c := range cs[start:end] {
			if !c.Valid() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.UnixMilli(c.Timestamp), symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, open, high, low, close, volume) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// Query reads archived candles for a symbol in a time range, newest first.
func (a *ClickHouseArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Candle, error) {
	q := fmt.Sprintf("SELECT ts, open, high, low, close, volume FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", a.table)
	rows, err := a.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var (
			c  models.Candle
			ts time.Time
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		c.Timestamp = ts.UnixMilli()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // pool owned by pkg client
}
