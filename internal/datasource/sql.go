package datasource

/*
SQLSource — источник данных поверх таблицы в Postgres (драйвер pgx) или SQLite (sqlite3).
Запрос всегда один: значения поля с учетом текущего ambient filter.
Агрегация выполняется в ядре виджета, т.к. legacy-режим вторичного значения
считает долю от общего числа записей, включая NULL.
Колонка выбирается как есть: нечисловые значения становятся nil на стороне Go,
а не приводятся к 0 (SQLite) и не валят весь запрос (Postgres).
*/

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xela07ax/statindicator/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер "pgx"
	_ "github.com/mattn/go-sqlite3"    // Драйвер "sqlite3"
)

// SQLSourceConfig описывает источник в конфиге сервиса
type SQLSourceConfig struct {
	ID     string         `mapstructure:"id"`
	Driver string         `mapstructure:"driver"` // pgx | sqlite3
	DSN    string         `mapstructure:"dsn"`
	Table  string         `mapstructure:"table"`
	Filter map[string]any `mapstructure:"filter"` // Начальный ambient filter
}

// OpenSQL открывает пул соединений для источника
func OpenSQL(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("datasource: open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

type SQLSource struct {
	id    string
	db    *sqlx.DB
	table string

	mu     sync.RWMutex
	filter map[string]any
}

func NewSQLSource(db *sqlx.DB, cfg SQLSourceConfig) (*SQLSource, error) {
	if _, err := quoteIdent(cfg.Table); err != nil {
		return nil, err
	}
	for col := range cfg.Filter {
		if _, err := quoteIdent(col); err != nil {
			return nil, err
		}
	}
	return &SQLSource{
		id:     cfg.ID,
		db:     db,
		table:  cfg.Table,
		filter: copyFilter(cfg.Filter),
	}, nil
}

func (s *SQLSource) ID() string { return s.id }

func (s *SQLSource) Query(ctx context.Context, req domain.QueryRequest) (domain.QueryResult, error) {
	query, args, err := s.buildQuery(req.Field)
	if err != nil {
		return domain.QueryResult{}, err
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("datasource %s: query failed: %w", s.id, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("datasource %s: column types: %w", s.id, err)
	}
	dbType := ""
	if len(types) > 0 {
		dbType = types[0].DatabaseTypeName()
	}

	var records []domain.Record
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return domain.QueryResult{}, fmt.Errorf("datasource %s: scan failed: %w", s.id, err)
		}
		rec := domain.Record{req.Field: nil}
		if v, ok := numericValue(raw, dbType); ok {
			rec[req.Field] = v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return domain.QueryResult{}, fmt.Errorf("datasource %s: %w", s.id, err)
	}
	return domain.QueryResult{Records: records}, nil
}

// numericValue оставляет только настоящие числа. Строка допустима лишь для
// NUMERIC/DECIMAL: pgx отдает их текстом.
func numericValue(raw any, dbType string) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		return parseDecimal(v, dbType)
	case []byte:
		return parseDecimal(string(v), dbType)
	default:
		return 0, false
	}
}

func parseDecimal(s, dbType string) (float64, bool) {
	switch strings.ToUpper(dbType) {
	case "NUMERIC", "DECIMAL":
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// buildQuery: SELECT "field" FROM "table" WHERE "col" = ? ...
// Порядок колонок фильтра фиксирован, чтобы текст запроса был стабилен.
func (s *SQLSource) buildQuery(field string) (string, []any, error) {
	col, err := quoteIdent(field)
	if err != nil {
		return "", nil, err
	}
	table, err := quoteIdent(s.table)
	if err != nil {
		return "", nil, err
	}

	filter := s.Filter()
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", col, table)

	args := make([]any, 0, len(keys))
	for i, k := range keys {
		fc, err := quoteIdent(k)
		if err != nil {
			return "", nil, err
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(fc + " = ?")
		args = append(args, filter[k])
	}

	// ? -> $n для pgx
	return s.db.Rebind(sb.String()), args, nil
}

func (s *SQLSource) SetFilter(filter map[string]any) {
	s.mu.Lock()
	s.filter = copyFilter(filter)
	s.mu.Unlock()
}

func (s *SQLSource) Filter() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFilter(s.filter)
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
