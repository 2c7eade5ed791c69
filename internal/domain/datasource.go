package domain

import "errors"

// DataSourceRef — непрозрачный идентификатор источника данных хоста
type DataSourceRef struct {
	DataSourceID string `json:"dataSourceId"`
}

// Record — одна запись: имя поля -> string | number | nil
type Record map[string]any

// QueryRequest описывает единственный запрос виджета к источнику.
// Фильтр не передается: его применяет сам источник (ambient filter).
type QueryRequest struct {
	Field     string        `json:"field"`
	Statistic StatisticType `json:"statistic"`
}

// QueryResult — упорядоченный набор записей
type QueryResult struct {
	Records []Record `json:"records"`
}

// ChangeKind — что изменилось в источнике
type ChangeKind string

const (
	ChangeRecords ChangeKind = "RECORDS"
	ChangeFilter  ChangeKind = "FILTER"
)

// ChangeEvent — уведомление об изменении записей или фильтра источника.
// Filter заполнен только для ChangeFilter: новое условие column = value.
// nil означает "фильтр не передан", пустая map сбрасывает фильтр.
type ChangeEvent struct {
	DataSourceID string         `json:"dataSourceId"`
	Kind         ChangeKind     `json:"kind"`
	Filter       map[string]any `json:"filter,omitempty"`
}

var (
	ErrDataSourceNotFound = errors.New("data source not found")
	ErrWidgetNotFound     = errors.New("widget not found")
	ErrInvalidSettings    = errors.New("invalid widget settings")
)
