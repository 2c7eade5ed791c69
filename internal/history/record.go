package history

import "time"

// Record — след одного принятого refresh виджета
type Record struct {
	ID           string    `json:"id"`        // UUID записи
	WidgetID     string    `json:"widget_id"` // Какой виджет
	DataSourceID string    `json:"data_source_id"`
	Field        string    `json:"field"`
	Statistic    string    `json:"statistic"`
	Reason       string    `json:"reason"` // settings, manual, change:RECORDS, change:FILTER
	Status       string    `json:"status"` // IDLE, DISPLAY, ERROR
	PrimaryRaw   *float64  `json:"primary_raw"`
	PrimaryValue *float64  `json:"primary_value"`
	Secondary    *float64  `json:"secondary_value"`
	Error        string    `json:"error"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}
