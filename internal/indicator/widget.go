package indicator

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

// CommitEvent — результат refresh, который виджет принял в DisplayState
type CommitEvent struct {
	WidgetID     string
	DataSourceID string
	Config       domain.Config
	State        domain.DisplayState
	Reason       string
	Duration     time.Duration
}

// CommitFunc вызывается после каждого принятого refresh (история, логирование)
type CommitFunc func(CommitEvent)

// Widget — экземпляр виджета: конечный автомат Idle -> Loading -> Display|Error.
// Каждый триггер (настройки, смена источника, уведомление) выпускает новое поколение.
// In-flight запросы не отменяются, но результат старого поколения выбрасывается.
type Widget struct {
	id       string
	ctx      context.Context
	core     *Indicator
	metrics  *Metrics
	logger   *zap.Logger
	onCommit CommitFunc

	applyMu sync.Mutex // Сериализует Apply/Teardown

	mu          sync.Mutex
	ref         domain.DataSourceRef
	cfg         domain.Config
	state       domain.DisplayState
	generation  uint64
	bound       string // ID источника, на который оформлена подписка
	unsubscribe func()
	closed      bool

	inflight sync.WaitGroup
}

func NewWidget(ctx context.Context, id string, core *Indicator, metrics *Metrics, logger *zap.Logger, onCommit CommitFunc) *Widget {
	if metrics == nil {
		metrics = core.metrics
	}
	return &Widget{
		id:       id,
		ctx:      ctx,
		core:     core,
		metrics:  metrics,
		logger:   logger.With(zap.String("widget", id)),
		onCommit: onCommit,
		cfg:      domain.ApplyDefaults(domain.RawConfig{}),
		state:    domain.IdleState(),
	}
}

func (w *Widget) ID() string { return w.id }

// Apply — mount или обновление настроек. Дефолты применяются здесь, один раз.
func (w *Widget) Apply(settings domain.WidgetSettings) {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	cfg := domain.ApplyDefaults(settings.Config)
	ref := settings.DataSource()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.ref, w.cfg = ref, cfg
	w.mu.Unlock()

	// Подписываемся только в активном состоянии: неактивный виджет не трогает источник
	target := ""
	if cfg.Active() {
		target = ref.DataSourceID
	}
	w.rebind(target)
	w.trigger("settings")
}

// Refresh — ручной пересчет с текущими настройками
func (w *Widget) Refresh() {
	w.trigger("manual")
}

// rebind переносит подписку на другой источник. Вызывается под applyMu.
func (w *Widget) rebind(target string) {
	w.mu.Lock()
	if w.closed || target == w.bound {
		w.mu.Unlock()
		return
	}
	old := w.unsubscribe
	w.unsubscribe, w.bound = nil, ""
	w.mu.Unlock()

	if old != nil {
		old()
		w.metrics.ActiveSubscriptions.Dec()
	}
	if target == "" {
		return
	}

	handle, err := w.core.Provider().Resolve(w.ctx, target)
	if err != nil {
		// Сам refresh покажет "data source not found"; при следующем Apply попробуем снова
		w.logger.Warn("subscription skipped", zap.String("data_source", target), zap.Error(err))
		return
	}

	unsub := handle.Subscribe(func(ev domain.ChangeEvent) {
		w.trigger("change:" + string(ev.Kind))
	})

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		unsub()
		return
	}
	w.bound, w.unsubscribe = target, unsub
	w.mu.Unlock()
	w.metrics.ActiveSubscriptions.Inc()
	w.logger.Debug("subscribed to data source", zap.String("data_source", target))
}

func (w *Widget) trigger(reason string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.generation++
	gen := w.generation
	ref, cfg := w.ref, w.cfg

	if ref.DataSourceID == "" || !cfg.Active() {
		w.state = domain.IdleState()
		st := w.state
		w.mu.Unlock()
		w.commit(ref, cfg, st, reason, 0)
		return
	}

	// Loading: показываем предыдущие значения, пока запрос в полете
	w.state = w.state.Loading()
	w.inflight.Add(1)
	w.mu.Unlock()

	go w.run(gen, ref, cfg, reason)
}

func (w *Widget) run(gen uint64, ref domain.DataSourceRef, cfg domain.Config, reason string) {
	defer w.inflight.Done()

	start := time.Now()
	st := w.core.Compute(w.ctx, ref, cfg)

	w.mu.Lock()
	if gen != w.generation || w.closed {
		w.mu.Unlock()
		w.metrics.SupersededTotal.Inc()
		w.logger.Debug("superseded refresh discarded", zap.Uint64("generation", gen), zap.String("reason", reason))
		return
	}
	w.state = st
	w.mu.Unlock()

	w.commit(ref, cfg, st, reason, time.Since(start))
}

func (w *Widget) commit(ref domain.DataSourceRef, cfg domain.Config, st domain.DisplayState, reason string, took time.Duration) {
	w.metrics.RefreshTotal.WithLabelValues(string(st.Status)).Inc()
	if w.onCommit != nil {
		w.onCommit(CommitEvent{
			WidgetID:     w.id,
			DataSourceID: ref.DataSourceID,
			Config:       cfg,
			State:        st,
			Reason:       reason,
			Duration:     took,
		})
	}
}

// State — текущий DisplayState
func (w *Widget) State() domain.DisplayState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Widget) View() domain.WidgetView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.WidgetView{
		ID:           w.id,
		DataSourceID: w.ref.DataSourceID,
		Config:       w.cfg,
		Display:      w.state,
	}
}

// Teardown отписывается от источника. Запросы в полете доживут, но их результат не будет принят.
func (w *Widget) Teardown() {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.generation++
	unsub := w.unsubscribe
	w.unsubscribe, w.bound = nil, ""
	w.mu.Unlock()

	if unsub != nil {
		unsub()
		w.metrics.ActiveSubscriptions.Dec()
	}
}

// Wait ждет завершения всех запущенных refresh
func (w *Widget) Wait() {
	w.inflight.Wait()
}
