package postgres

/*
Файл widget_repo.go — ConfigStore виджетов: долговременное хранение настроек.
Рантайм виджетов читает отсюда только при старте и по сигналу из шины.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/statindicator/internal/domain"
)

type WidgetRepo struct {
	pool *pgxpool.Pool
}

func NewWidgetRepo(pool *pgxpool.Pool) *WidgetRepo {
	return &WidgetRepo{pool: pool}
}

func (r *WidgetRepo) GetWidget(ctx context.Context, id string) (domain.WidgetSettings, error) {
	query := `SELECT id, COALESCE(data_source_id, ''), config, updated_at FROM widgets WHERE id = $1`

	s, err := scanWidget(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WidgetSettings{}, domain.ErrWidgetNotFound
		}
		return domain.WidgetSettings{}, fmt.Errorf("postgres: failed to get widget: %w", err)
	}
	return s, nil
}

// ListWidgets — «холодная загрузка» всех виджетов при старте инстанса
func (r *WidgetRepo) ListWidgets(ctx context.Context) ([]domain.WidgetSettings, error) {
	query := `SELECT id, COALESCE(data_source_id, ''), config, updated_at FROM widgets ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list widgets: %w", err)
	}
	defer rows.Close()

	var results []domain.WidgetSettings
	for rows.Next() {
		s, err := scanWidget(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan widget: %w", err)
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// SaveWidget — upsert настроек
func (r *WidgetRepo) SaveWidget(ctx context.Context, s domain.WidgetSettings) error {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode config: %w", err)
	}

	var dsID *string
	if ref := s.DataSource(); ref.DataSourceID != "" {
		dsID = &ref.DataSourceID
	}

	query := `
		INSERT INTO widgets (id, data_source_id, config, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET data_source_id = EXCLUDED.data_source_id, config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`

	if _, err := r.pool.Exec(ctx, query, s.ID, dsID, cfg, s.UpdatedAt); err != nil {
		return fmt.Errorf("postgres: failed to save widget: %w", err)
	}
	return nil
}

func (r *WidgetRepo) DeleteWidget(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM widgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete widget: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrWidgetNotFound
	}
	return nil
}

func scanWidget(row pgx.Row) (domain.WidgetSettings, error) {
	var (
		s    domain.WidgetSettings
		dsID string
		raw  []byte
	)
	if err := row.Scan(&s.ID, &dsID, &raw, &s.UpdatedAt); err != nil {
		return domain.WidgetSettings{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Config); err != nil {
			return domain.WidgetSettings{}, fmt.Errorf("broken config of widget %s: %w", s.ID, err)
		}
	}
	if dsID != "" {
		s.UseDataSources = []domain.DataSourceRef{{DataSourceID: dsID}}
	}
	return s, nil
}
