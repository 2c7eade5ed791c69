package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/statindicator/internal/history"
)

// HistoryRepo — пакетная запись истории пересчетов через COPY
type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

var historyColumns = []string{
	"id", "widget_id", "data_source_id", "field", "statistic", "reason", "status",
	"primary_raw", "primary_value", "secondary_value", "error", "duration_ms", "timestamp",
}

func (r *HistoryRepo) WriteBatch(ctx context.Context, records []history.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		// uuid.UUID кодируется pgx в бинарный uuid напрямую
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			id = uuid.New()
		}
		rows = append(rows, []any{
			id, rec.WidgetID, rec.DataSourceID, rec.Field, rec.Statistic, rec.Reason, rec.Status,
			rec.PrimaryRaw, rec.PrimaryValue, rec.Secondary, rec.Error, rec.DurationMs, rec.Timestamp,
		})
	}

	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{"refresh_history"}, historyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres: failed to copy history: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("postgres: history copy wrote %d of %d rows", n, len(records))
	}
	return nil
}
