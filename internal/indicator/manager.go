package indicator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

// SettingsReader — то, что менеджеру нужно от ConfigStore
type SettingsReader interface {
	GetWidget(ctx context.Context, id string) (domain.WidgetSettings, error)
	ListWidgets(ctx context.Context) ([]domain.WidgetSettings, error)
}

// Manager держит все смонтированные виджеты инстанса.
type Manager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	core     *Indicator
	metrics  *Metrics
	logger   *zap.Logger
	onCommit CommitFunc

	mu      sync.RWMutex
	widgets map[string]*Widget
}

func NewManager(core *Indicator, metrics *Metrics, logger *zap.Logger, onCommit CommitFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:      ctx,
		cancel:   cancel,
		core:     core,
		metrics:  metrics,
		logger:   logger.Named("widgets"),
		onCommit: onCommit,
		widgets:  make(map[string]*Widget),
	}
}

// Bootstrap монтирует все виджеты из хранилища при старте
func (m *Manager) Bootstrap(ctx context.Context, store SettingsReader) error {
	all, err := store.ListWidgets(ctx)
	if err != nil {
		return fmt.Errorf("widgets: bootstrap failed: %w", err)
	}
	for _, s := range all {
		m.Apply(s)
	}
	m.logger.Info("widgets mounted", zap.Int("count", len(all)))
	return nil
}

// Apply монтирует новый виджет или передает ему новые настройки
func (m *Manager) Apply(settings domain.WidgetSettings) {
	m.mu.Lock()
	w, ok := m.widgets[settings.ID]
	if !ok {
		w = NewWidget(m.ctx, settings.ID, m.core, m.metrics, m.logger, m.onCommit)
		m.widgets[settings.ID] = w
	}
	m.mu.Unlock()

	w.Apply(settings)
}

// Reload перечитывает настройки виджета из хранилища (сигнал из шины).
// Если виджета больше нет — снимаем его.
func (m *Manager) Reload(ctx context.Context, store SettingsReader, id string) error {
	s, err := store.GetWidget(ctx, id)
	if errors.Is(err, domain.ErrWidgetNotFound) {
		m.Remove(id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("widgets: reload %s: %w", id, err)
	}
	m.Apply(s)
	return nil
}

// ResyncAll пересчитывает все виджеты (после переподключения к шине могли пропустить уведомления)
func (m *Manager) ResyncAll() {
	for _, w := range m.snapshot() {
		w.Refresh()
	}
}

func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	w, ok := m.widgets[id]
	delete(m.widgets, id)
	m.mu.Unlock()

	if ok {
		w.Teardown()
		m.logger.Info("widget unmounted", zap.String("widget", id))
	}
	return ok
}

func (m *Manager) Refresh(id string) error {
	w, err := m.get(id)
	if err != nil {
		return err
	}
	w.Refresh()
	return nil
}

func (m *Manager) View(id string) (domain.WidgetView, error) {
	w, err := m.get(id)
	if err != nil {
		return domain.WidgetView{}, err
	}
	return w.View(), nil
}

// List — снимки всех виджетов, отсортированные по ID
func (m *Manager) List() []domain.WidgetView {
	ws := m.snapshot()
	out := make([]domain.WidgetView, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Wait ждет завершения refresh во всех виджетах
func (m *Manager) Wait() {
	for _, w := range m.snapshot() {
		w.Wait()
	}
}

// Close снимает все виджеты и ждет запросы в полете
func (m *Manager) Close() {
	m.mu.Lock()
	ws := make([]*Widget, 0, len(m.widgets))
	for id, w := range m.widgets {
		ws = append(ws, w)
		delete(m.widgets, id)
	}
	m.mu.Unlock()

	for _, w := range ws {
		w.Teardown()
	}
	m.cancel()
	for _, w := range ws {
		w.Wait()
	}
}

func (m *Manager) get(id string) (*Widget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.widgets[id]
	if !ok {
		return nil, domain.ErrWidgetNotFound
	}
	return w, nil
}

func (m *Manager) snapshot() []*Widget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws := make([]*Widget, 0, len(m.widgets))
	for _, w := range m.widgets {
		ws = append(ws, w)
	}
	return ws
}
