package history

import (
	"context"

	"go.uber.org/zap"
)

// LogStorage пишет историю в лог, когда база не настроена
type LogStorage struct {
	logger *zap.Logger
}

func NewLogStorage(logger *zap.Logger) *LogStorage {
	return &LogStorage{logger: logger.Named("history")}
}

func (s *LogStorage) WriteBatch(_ context.Context, records []Record) error {
	for _, rec := range records {
		fields := []zap.Field{
			zap.String("widget", rec.WidgetID),
			zap.String("data_source", rec.DataSourceID),
			zap.String("reason", rec.Reason),
			zap.String("status", rec.Status),
			zap.Int64("duration_ms", rec.DurationMs),
		}
		if rec.PrimaryValue != nil {
			fields = append(fields, zap.Float64("primary", *rec.PrimaryValue))
		}
		if rec.Error != "" {
			fields = append(fields, zap.String("error", rec.Error))
		}
		s.logger.Info("refresh committed", fields...)
	}
	return nil
}
