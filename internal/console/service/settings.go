package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/statindicator/internal/domain"
	"github.com/xela07ax/statindicator/internal/notify"
	"go.uber.org/zap"
)

// WidgetRepository описывает требования сервиса к ConfigStore
type WidgetRepository interface {
	GetWidget(ctx context.Context, id string) (domain.WidgetSettings, error)
	ListWidgets(ctx context.Context) ([]domain.WidgetSettings, error)
	SaveWidget(ctx context.Context, s domain.WidgetSettings) error
	DeleteWidget(ctx context.Context, id string) error
}

// Runtime — локальный рантайм виджетов (indicator.Manager)
type Runtime interface {
	Apply(settings domain.WidgetSettings)
	Remove(id string) bool
}

// ChangeDispatcher — локальная доставка изменений источников (datasource.Registry)
type ChangeDispatcher interface {
	Dispatch(ev domain.ChangeEvent) error
}

// SettingsService — сторона панели настроек: нормализует, сохраняет и рассылает изменения
type SettingsService struct {
	repo       WidgetRepository
	bus        notify.Bus
	runtime    Runtime
	dispatcher ChangeDispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewSettingsService(repo WidgetRepository, bus notify.Bus, runtime Runtime, dispatcher ChangeDispatcher, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		repo:       repo,
		bus:        bus,
		runtime:    runtime,
		dispatcher: dispatcher,
		logger:     logger.Named("settings-service"),
		now:        time.Now,
	}
}

func (s *SettingsService) Get(ctx context.Context, id string) (domain.WidgetSettings, error) {
	return s.repo.GetWidget(ctx, id)
}

// Save — редактирование настроек. Делитель 0/пустой сохраняется как 1.
func (s *SettingsService) Save(ctx context.Context, settings domain.WidgetSettings) (domain.WidgetSettings, error) {
	settings, err := s.normalize(settings)
	if err != nil {
		return domain.WidgetSettings{}, err
	}

	// 1. Persistence Layer
	if err := s.repo.SaveWidget(ctx, settings); err != nil {
		s.logger.Error("failed to save widget settings", zap.String("widget", settings.ID), zap.Error(err))
		return domain.WidgetSettings{}, fmt.Errorf("settings: %w", err)
	}

	// 2. Сигнал всем инстансам (включая этот) перечитать настройки
	if err := s.bus.PublishSettings(ctx, settings.ID); err != nil {
		s.logger.Warn("settings signal delivery failed, applying locally", zap.String("widget", settings.ID), zap.Error(err))
		s.runtime.Apply(settings)
	}

	s.logger.Info("widget settings saved", zap.String("widget", settings.ID), zap.String("data_source", settings.DataSource().DataSourceID))
	return settings, nil
}

func (s *SettingsService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteWidget(ctx, id); err != nil {
		return err
	}
	if err := s.bus.PublishSettings(ctx, id); err != nil {
		s.logger.Warn("settings signal delivery failed, removing locally", zap.String("widget", id), zap.Error(err))
		s.runtime.Remove(id)
	}
	return nil
}

// PublishChange — хост сообщает об изменении записей или фильтра источника
func (s *SettingsService) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	if ev.DataSourceID == "" {
		return fmt.Errorf("%w: dataSourceId is required", domain.ErrInvalidSettings)
	}
	if ev.Kind != domain.ChangeFilter {
		ev.Kind = domain.ChangeRecords
		ev.Filter = nil
	}

	if err := s.bus.PublishChange(ctx, ev); err != nil {
		s.logger.Warn("change signal delivery failed, dispatching locally", zap.String("data_source", ev.DataSourceID), zap.Error(err))
		return s.dispatcher.Dispatch(ev)
	}
	return nil
}

// normalize — проверки на границе редактирования
func (s *SettingsService) normalize(settings domain.WidgetSettings) (domain.WidgetSettings, error) {
	settings.ID = strings.TrimSpace(settings.ID)
	if settings.ID == "" {
		return settings, fmt.Errorf("%w: id is required", domain.ErrInvalidSettings)
	}
	if len(settings.UseDataSources) > 1 {
		return settings, fmt.Errorf("%w: at most one data source can be selected", domain.ErrInvalidSettings)
	}
	if len(settings.UseDataSources) == 1 && settings.UseDataSources[0].DataSourceID == "" {
		settings.UseDataSources = nil
	}

	divisor := domain.NormalizeDivisor(settings.Config.Divisor)
	settings.Config.Divisor = &divisor

	if t := settings.Config.StatisticType; t != nil {
		norm := string(domain.ParseStatisticType(*t))
		settings.Config.StatisticType = &norm
	}

	settings.UpdatedAt = s.now().UTC()
	return settings, nil
}
