package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xela07ax/statindicator/internal/domain"
)

// WidgetRepo — хранилище настроек в памяти, когда Postgres не настроен
type WidgetRepo struct {
	mu      sync.RWMutex
	widgets map[string]domain.WidgetSettings
}

func NewWidgetRepo(seed ...domain.WidgetSettings) *WidgetRepo {
	r := &WidgetRepo{widgets: make(map[string]domain.WidgetSettings, len(seed))}
	for _, s := range seed {
		r.widgets[s.ID] = s
	}
	return r
}

func (r *WidgetRepo) GetWidget(_ context.Context, id string) (domain.WidgetSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.widgets[id]
	if !ok {
		return domain.WidgetSettings{}, domain.ErrWidgetNotFound
	}
	return s, nil
}

func (r *WidgetRepo) ListWidgets(_ context.Context) ([]domain.WidgetSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WidgetSettings, 0, len(r.widgets))
	for _, s := range r.widgets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *WidgetRepo) SaveWidget(_ context.Context, s domain.WidgetSettings) error {
	r.mu.Lock()
	r.widgets[s.ID] = s
	r.mu.Unlock()
	return nil
}

func (r *WidgetRepo) DeleteWidget(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.widgets[id]; !ok {
		return domain.ErrWidgetNotFound
	}
	delete(r.widgets, id)
	return nil
}
