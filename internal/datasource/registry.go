package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

// handle связывает бэкенд с хабом подписок. Создается один раз на источник.
type handle struct {
	Source
	hub *Hub
}

func (h *handle) Subscribe(fn func(domain.ChangeEvent)) func() {
	return h.hub.Subscribe(h.ID(), fn)
}

// Registry реализует Provider: in-memory каталог источников, общий для всех виджетов.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*handle
	filters map[string]Filterable
	hub     *Hub
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		handles: make(map[string]*handle),
		filters: make(map[string]Filterable),
		hub:     NewHub(),
		logger:  logger.Named("datasources"),
	}
}

// Register добавляет источник. filterable передается отдельно, потому что
// src может быть оберткой (GuardedSource), которая фильтр не экспонирует.
func (r *Registry) Register(src Source, filterable Filterable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[src.ID()]; exists {
		return fmt.Errorf("datasource: %s already registered", src.ID())
	}
	r.handles[src.ID()] = &handle{Source: src, hub: r.hub}
	if filterable != nil {
		r.filters[src.ID()] = filterable
	}
	r.logger.Info("data source registered", zap.String("id", src.ID()))
	return nil
}

func (r *Registry) Resolve(_ context.Context, id string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return nil, domain.ErrDataSourceNotFound
	}
	return h, nil
}

// Dispatch применяет событие хоста: для FILTER сначала меняет фильтр источника,
// затем будит подписчиков. FILTER без условия (компактный сигнал "id:FILTER")
// фильтр не трогает и работает как RECORDS; сбросить фильтр можно пустым объектом.
func (r *Registry) Dispatch(ev domain.ChangeEvent) error {
	r.mu.RLock()
	_, known := r.handles[ev.DataSourceID]
	f := r.filters[ev.DataSourceID]
	r.mu.RUnlock()

	if !known {
		return fmt.Errorf("%w: %s", domain.ErrDataSourceNotFound, ev.DataSourceID)
	}
	if ev.Kind == domain.ChangeFilter && ev.Filter == nil {
		ev.Kind = domain.ChangeRecords
	}
	if ev.Kind == domain.ChangeFilter && f != nil {
		f.SetFilter(ev.Filter)
	}

	n := r.hub.Publish(ev)
	r.logger.Debug("change dispatched",
		zap.String("id", ev.DataSourceID),
		zap.String("kind", string(ev.Kind)),
		zap.Int("subscribers", n))
	return nil
}

// IDs — отсортированный список зарегистрированных источников
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Hub() *Hub {
	return r.hub
}
