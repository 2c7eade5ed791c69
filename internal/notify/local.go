package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/xela07ax/statindicator/internal/domain"
)

var ErrBusNotRunning = errors.New("notify: bus is not running")

// LocalBus — доставка внутри процесса, для одного инстанса без брокера
type LocalBus struct {
	mu       sync.RWMutex
	handlers *Handlers
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) PublishChange(_ context.Context, ev domain.ChangeEvent) error {
	return b.deliver(Message{Type: TypeChange, Change: ev})
}

func (b *LocalBus) PublishSettings(_ context.Context, widgetID string) error {
	return b.deliver(Message{Type: TypeSettings, WidgetID: widgetID})
}

func (b *LocalBus) deliver(msg Message) error {
	b.mu.RLock()
	h := b.handlers
	b.mu.RUnlock()
	if h == nil {
		return ErrBusNotRunning
	}
	h.dispatch(msg)
	return nil
}

func (b *LocalBus) Run(ctx context.Context, h Handlers) error {
	b.mu.Lock()
	b.handlers = &h
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
	return nil
}
