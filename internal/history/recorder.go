package history

/*
Recorder — асинхронная запись истории пересчетов виджетов.
- Неблокирующий Log: виджет не ждет базу, при переполнении буфера запись сбрасывается (Load Shedding).
- Пакетная запись по таймеру или при достижении размера пачки.
- Drain Pattern: Stop закрывает канал, воркер вычитывает остаток и делает финальный flush.
*/

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Storage определяет, куда физически сохраняется история
type Storage interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, records []Record) error
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// OnFill получает текущую длину очереди (для gauge)
	OnFill func(n int)
}

type Recorder struct {
	ch       chan Record
	repo     Storage
	opts     Options
	logger   *zap.Logger
	wg       sync.WaitGroup
	closeMu  sync.RWMutex // Log держит RLock на время отправки, Stop закрывает канал под Lock
	isClosed bool
}

func NewRecorder(repo Storage, opts Options, logger *zap.Logger) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	return &Recorder{
		ch:     make(chan Record, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "history")),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop «запирает» вход и ждет, пока воркер всё допишет.
func (r *Recorder) Stop() {
	r.closeMu.Lock()
	if r.isClosed {
		r.closeMu.Unlock()
		return
	}
	r.isClosed = true
	close(r.ch)
	r.closeMu.Unlock()

	r.logger.Info("stopping history recorder: flushing buffer...")
	r.wg.Wait()
	r.logger.Info("history recorder stopped")
}

func (r *Recorder) Log(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.isClosed {
		r.logger.Warn("history record dropped: recorder is stopping", zap.String("widget", rec.WidgetID))
		return
	}

	select {
	case r.ch <- rec:
		if r.opts.OnFill != nil {
			r.opts.OnFill(len(r.ch))
		}
	default:
		r.logger.Error("history_buffer_overflow",
			zap.String("widget", rec.WidgetID),
			zap.String("status", rec.Status))
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]Record, 0, r.opts.BatchSize)
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст при остановке уже может быть закрыт
		if err := r.repo.WriteBatch(context.Background(), batch); err != nil {
			r.logger.Error("history flush failed", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		if r.opts.OnFill != nil {
			r.opts.OnFill(len(r.ch))
		}
	}

	for {
		select {
		case rec, ok := <-r.ch:
			if !ok {
				// Канал закрыт в Stop: остатки уже вычитаны
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= r.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
