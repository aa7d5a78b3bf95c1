package runs

import (
	"context"
	"fmt"
)

// Precision: shares NUMERIC(18,4), money NUMERIC(15,2), avg price NUMERIC(15,4), FX NUMERIC(18,6).
// SQLite stores decimals as TEXT to keep them exact.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id                       BIGSERIAL PRIMARY KEY,
		run_date                 DATE NOT NULL,
		trigger_type             VARCHAR(10) NOT NULL CHECK (trigger_type IN ('auto', 'manual', 'test')),
		status                   VARCHAR(10) NOT NULL CHECK (status IN ('pending', 'completed')),
		total_capital            NUMERIC(15,2) NOT NULL,
		uninvested_cash          NUMERIC(15,2) NOT NULL DEFAULT 0,
		input_currency           VARCHAR(3) NOT NULL DEFAULT 'USD',
		fx_rate_to_usd           NUMERIC(18,6) NOT NULL DEFAULT 1,
		fx_rate_timestamp        TIMESTAMPTZ,
		market_open              BOOLEAN NOT NULL,
		allocation_residual_cash NUMERIC(15,2) NOT NULL DEFAULT 0,
		confirmation_key         VARCHAR(64),
		strategy_hash            VARCHAR(64) NOT NULL DEFAULT '',
		created_at               TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_single_pending ON runs (status) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS run_allocations (
		run_id     BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		symbol     VARCHAR(16) NOT NULL,
		weight     NUMERIC(12,8) NOT NULL,
		amount     NUMERIC(15,2) NOT NULL,
		alloc_rank INTEGER NOT NULL DEFAULT 0,
		reason     VARCHAR(32) NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS cashflow_moves (
		run_id      BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		order_index INTEGER NOT NULL,
		symbol      VARCHAR(16) NOT NULL,
		action      VARCHAR(4) NOT NULL CHECK (action IN ('BUY', 'SELL')),
		shares      NUMERIC(18,4) NOT NULL,
		value       NUMERIC(15,2) NOT NULL,
		PRIMARY KEY (run_id, order_index)
	)`,
	`CREATE TABLE IF NOT EXISTS swap_moves (
		run_id      BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		order_index INTEGER NOT NULL,
		from_symbol VARCHAR(16),
		to_symbol   VARCHAR(16),
		shares_from NUMERIC(18,4),
		shares_to   NUMERIC(18,4),
		value       NUMERIC(15,2) NOT NULL,
		PRIMARY KEY (run_id, order_index)
	)`,
	`CREATE TABLE IF NOT EXISTS confirmations (
		run_id           BIGINT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
		cash             NUMERIC(15,2) NOT NULL,
		confirmation_key VARCHAR(64) NOT NULL,
		confirmed_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS confirmed_positions (
		run_id    BIGINT NOT NULL REFERENCES confirmations(run_id) ON DELETE CASCADE,
		symbol    VARCHAR(16) NOT NULL,
		shares    NUMERIC(18,4) NOT NULL CHECK (shares >= 0),
		avg_price NUMERIC(15,4) NOT NULL CHECK (avg_price >= 0),
		PRIMARY KEY (run_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS scheduler_logs (
		id            BIGSERIAL PRIMARY KEY,
		execution_id  VARCHAR(36) NOT NULL,
		job_name      VARCHAR(64) NOT NULL,
		run_date      DATE NOT NULL,
		status        VARCHAR(10) NOT NULL CHECK (status IN ('success', 'error')),
		run_id        BIGINT,
		error_message VARCHAR(500),
		created_at    TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id                       INTEGER PRIMARY KEY AUTOINCREMENT,
		run_date                 DATE NOT NULL,
		trigger_type             TEXT NOT NULL CHECK (trigger_type IN ('auto', 'manual', 'test')),
		status                   TEXT NOT NULL CHECK (status IN ('pending', 'completed')),
		total_capital            TEXT NOT NULL,
		uninvested_cash          TEXT NOT NULL DEFAULT '0',
		input_currency           TEXT NOT NULL DEFAULT 'USD',
		fx_rate_to_usd           TEXT NOT NULL DEFAULT '1',
		fx_rate_timestamp        TIMESTAMP,
		market_open              BOOLEAN NOT NULL,
		allocation_residual_cash TEXT NOT NULL DEFAULT '0',
		confirmation_key         TEXT,
		strategy_hash            TEXT NOT NULL DEFAULT '',
		created_at               TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_single_pending ON runs (status) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS run_allocations (
		run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		symbol     TEXT NOT NULL,
		weight     TEXT NOT NULL,
		amount     TEXT NOT NULL,
		alloc_rank INTEGER NOT NULL DEFAULT 0,
		reason     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS cashflow_moves (
		run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		order_index INTEGER NOT NULL,
		symbol      TEXT NOT NULL,
		action      TEXT NOT NULL CHECK (action IN ('BUY', 'SELL')),
		shares      TEXT NOT NULL,
		value       TEXT NOT NULL,
		PRIMARY KEY (run_id, order_index)
	)`,
	`CREATE TABLE IF NOT EXISTS swap_moves (
		run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		order_index INTEGER NOT NULL,
		from_symbol TEXT,
		to_symbol   TEXT,
		shares_from TEXT,
		shares_to   TEXT,
		value       TEXT NOT NULL,
		PRIMARY KEY (run_id, order_index)
	)`,
	`CREATE TABLE IF NOT EXISTS confirmations (
		run_id           INTEGER PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
		cash             TEXT NOT NULL,
		confirmation_key TEXT NOT NULL,
		confirmed_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS confirmed_positions (
		run_id    INTEGER NOT NULL REFERENCES confirmations(run_id) ON DELETE CASCADE,
		symbol    TEXT NOT NULL,
		shares    TEXT NOT NULL,
		avg_price TEXT NOT NULL,
		PRIMARY KEY (run_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS scheduler_logs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id  TEXT NOT NULL,
		job_name      TEXT NOT NULL,
		run_date      DATE NOT NULL,
		status        TEXT NOT NULL CHECK (status IN ('success', 'error')),
		run_id        INTEGER,
		error_message TEXT,
		created_at    TIMESTAMP NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if r.db.Driver() == "postgres" {
		stmts = postgresSchema
	}
	for i, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s statement %d: %w", r.db.Driver(), i+1, err)
		}
	}
	return nil
}
