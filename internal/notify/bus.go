package notify

import (
	"context"

	"github.com/xela07ax/statindicator/internal/domain"
)

// Handlers — реакции инстанса на сообщения шины
type Handlers struct {
	OnChange   func(ev domain.ChangeEvent)
	OnSettings func(widgetID string)
	// OnResync вызывается после (пере)подключения: уведомления могли потеряться
	OnResync func()
}

func (h Handlers) dispatch(msg Message) {
	switch msg.Type {
	case TypeChange:
		if h.OnChange != nil {
			h.OnChange(msg.Change)
		}
	case TypeSettings:
		if h.OnSettings != nil {
			h.OnSettings(msg.WidgetID)
		}
	}
}

func (h Handlers) resync() {
	if h.OnResync != nil {
		h.OnResync()
	}
}

// Bus рассылает события всем инстансам сервиса, включая отправителя.
type Bus interface {
	PublishChange(ctx context.Context, ev domain.ChangeEvent) error
	PublishSettings(ctx context.Context, widgetID string) error
	// Run блокируется до отмены ctx и доставляет сообщения в h
	Run(ctx context.Context, h Handlers) error
}
