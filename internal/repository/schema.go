package repository

// PostgresSchema holds the DDL applied at startup. Statements are idempotent.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS scouts (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tier TEXT NOT NULL DEFAULT 'BASIC',
		strategy TEXT NOT NULL,
		config JSONB NOT NULL DEFAULT '{}',
		symbols TEXT[] NOT NULL,
		scan_interval TEXT NOT NULL DEFAULT '15s',
		status TEXT NOT NULL DEFAULT 'INACTIVE',
		total_signals INT NOT NULL DEFAULT 0,
		success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_signal_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scouts_user_id ON scouts (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scouts_status ON scouts (status)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id UUID PRIMARY KEY,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		type TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		target_price DOUBLE PRECISION[] NOT NULL,
		stop_loss DOUBLE PRECISION NOT NULL,
		confidence INT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		outcome TEXT,
		indicators JSONB NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_user_created ON signals (user_id, created_at DESC)`,
}
