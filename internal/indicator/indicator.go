package indicator

/*
Indicator — ядро виджета статистики: один запрос к источнику, агрегация,
деление на divisor, форматирование и вторичное значение.
Compute не хранит состояния и безопасен для конкурентного вызова.
*/

import (
	"context"
	"errors"
	"time"

	"github.com/xela07ax/statindicator/internal/datasource"
	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

type Indicator struct {
	provider  datasource.Provider
	formatter *Formatter
	metrics   *Metrics
	logger    *zap.Logger
}

func NewIndicator(provider datasource.Provider, formatter *Formatter, metrics *Metrics, logger *zap.Logger) *Indicator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Indicator{
		provider:  provider,
		formatter: formatter,
		metrics:   metrics,
		logger:    logger.Named("indicator"),
	}
}

// Compute — операция refresh(dataSourceRef, config) -> DisplayState.
// Никогда не возвращает ошибку: все сбои превращаются в DisplayState.Error.
func (ind *Indicator) Compute(ctx context.Context, ref domain.DataSourceRef, cfg domain.Config) domain.DisplayState {
	// 1. Неактивная конфигурация: никого не трогаем
	if ref.DataSourceID == "" || !cfg.Active() {
		return domain.IdleState()
	}

	start := time.Now()

	// 2. Разрешаем источник
	handle, err := ind.provider.Resolve(ctx, ref.DataSourceID)
	if err != nil {
		if !errors.Is(err, domain.ErrDataSourceNotFound) {
			ind.logger.Warn("data source resolution failed", zap.String("data_source", ref.DataSourceID), zap.Error(err))
		}
		ind.observe(ref.DataSourceID, domain.StatusError, start)
		return domain.ErrorState(domain.ErrDataSourceNotFound.Error())
	}

	// 3. Единственный запрос. Фильтр применяет сам источник
	res, err := handle.Query(ctx, domain.QueryRequest{
		Field:     cfg.StatisticField,
		Statistic: cfg.StatisticType,
	})
	if err != nil {
		ind.logger.Warn("statistic query failed",
			zap.String("data_source", ref.DataSourceID),
			zap.String("field", cfg.StatisticField),
			zap.Error(err))
		ind.observe(ref.DataSourceID, domain.StatusError, start)
		return domain.ErrorState(err.Error())
	}

	// 4. Агрегация и форматирование
	st := ind.build(cfg, res.Records)
	ind.observe(ref.DataSourceID, st.Status, start)
	return st
}

func (ind *Indicator) build(cfg domain.Config, records []domain.Record) domain.DisplayState {
	raw := Aggregate(cfg.StatisticType, NumericValues(records, cfg.StatisticField))

	st := domain.DisplayState{Status: domain.StatusDisplay, PrimaryRaw: raw}
	if raw != nil {
		// Делитель уже нормализован в ApplyDefaults, но Config мог быть собран руками
		divisor := domain.NormalizeDivisor(&cfg.Divisor)
		v := *raw / divisor
		st.PrimaryValue = &v
		st.PrimaryText = cfg.Prefix + ind.formatter.Format(v, cfg.DecimalPlaces) + cfg.Suffix
	}

	if !cfg.ShowSecondaryValue {
		return st
	}

	var secondary *float64
	switch cfg.SecondaryMode {
	case domain.SecondaryDenominator:
		if d := cfg.SecondaryValueDenominator; d != nil && *d != 0 && raw != nil {
			v := *raw / *d * 100
			secondary = &v
		}
	default:
		v := PositiveShare(records, cfg.StatisticField)
		secondary = &v
	}
	if secondary != nil {
		st.SecondaryValue = secondary
		st.SecondaryText = cfg.SecondaryPrefix + ind.formatter.Format(*secondary, cfg.SecondaryDecimalPlaces) + cfg.SecondarySuffix
	}
	return st
}

func (ind *Indicator) observe(dataSourceID string, status domain.DisplayStatus, start time.Time) {
	ind.metrics.RefreshDuration.WithLabelValues(dataSourceID, string(status)).Observe(time.Since(start).Seconds())
}

// Provider нужен виджету для подписки на изменения
func (ind *Indicator) Provider() datasource.Provider {
	return ind.provider
}
