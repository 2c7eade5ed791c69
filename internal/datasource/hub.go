package datasource

import (
	"sync"

	"github.com/xela07ax/statindicator/internal/domain"
)

// Hub раздает ChangeEvent подписчикам конкретного источника.
// Каждая подписка живет независимо: отписка одного виджета не трогает других.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(domain.ChangeEvent)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]func(domain.ChangeEvent))}
}

func (h *Hub) Subscribe(dataSourceID string, fn func(domain.ChangeEvent)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[dataSourceID] == nil {
		h.subs[dataSourceID] = make(map[uint64]func(domain.ChangeEvent))
	}
	h.subs[dataSourceID][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[dataSourceID], id)
			if len(h.subs[dataSourceID]) == 0 {
				delete(h.subs, dataSourceID)
			}
		})
	}
}

// Publish вызывает подписчиков вне блокировки, чтобы они могли отписаться из колбэка.
func (h *Hub) Publish(ev domain.ChangeEvent) int {
	h.mu.RLock()
	fns := make([]func(domain.ChangeEvent), 0, len(h.subs[ev.DataSourceID]))
	for _, fn := range h.subs[ev.DataSourceID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	return len(fns)
}

// Subscribers — количество активных подписок на источник
func (h *Hub) Subscribers(dataSourceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[dataSourceID])
}
