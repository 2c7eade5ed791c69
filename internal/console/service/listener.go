package service

import (
	"context"
	"time"

	"github.com/xela07ax/statindicator/internal/domain"
	"github.com/xela07ax/statindicator/internal/indicator"
	"github.com/xela07ax/statindicator/internal/notify"
	"go.uber.org/zap"
)

// Reloader — рантайм, умеющий перечитать виджет из хранилища
type Reloader interface {
	Reload(ctx context.Context, store indicator.SettingsReader, id string) error
	ResyncAll()
}

// BusHandlers связывает сообщения шины с рантаймом инстанса
func BusHandlers(ctx context.Context, repo WidgetRepository, runtime Reloader, dispatcher ChangeDispatcher, logger *zap.Logger) notify.Handlers {
	logger = logger.Named("bus-handlers")
	return notify.Handlers{
		OnChange: func(ev domain.ChangeEvent) {
			if err := dispatcher.Dispatch(ev); err != nil {
				logger.Warn("change for unknown data source ignored", zap.String("data_source", ev.DataSourceID), zap.Error(err))
			}
		},
		OnSettings: func(widgetID string) {
			rCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := runtime.Reload(rCtx, repo, widgetID); err != nil {
				logger.Error("widget reload failed", zap.String("widget", widgetID), zap.Error(err))
			}
		},
		OnResync: runtime.ResyncAll,
	}
}
