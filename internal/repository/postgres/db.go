package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool создает пул соединений. Доступность базы проверяет вызывающий (infra.WaitFor + Ping).
func NewPool(ctx context.Context, url string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS widgets (
	id             TEXT PRIMARY KEY,
	data_source_id TEXT,
	config         JSONB NOT NULL DEFAULT '{}'::jsonb,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS refresh_history (
	id              UUID PRIMARY KEY,
	widget_id       TEXT NOT NULL,
	data_source_id  TEXT,
	field           TEXT,
	statistic       TEXT,
	reason          TEXT,
	status          TEXT NOT NULL,
	primary_raw     DOUBLE PRECISION,
	primary_value   DOUBLE PRECISION,
	secondary_value DOUBLE PRECISION,
	error           TEXT,
	duration_ms     BIGINT,
	timestamp       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS refresh_history_widget_ts ON refresh_history (widget_id, timestamp DESC);
`

// EnsureSchema создает таблицы, если их еще нет
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}
