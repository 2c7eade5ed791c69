package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

type recorder struct {
	changes  chan domain.ChangeEvent
	settings chan string
	resyncs  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		changes:  make(chan domain.ChangeEvent, 8),
		settings: make(chan string, 8),
		resyncs:  make(chan struct{}, 8),
	}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnChange:   func(ev domain.ChangeEvent) { r.changes <- ev },
		OnSettings: func(id string) { r.settings <- id },
		OnResync:   func() { r.resyncs <- struct{}{} },
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for bus message")
		var zero T
		return zero
	}
}

func TestLocalBus(t *testing.T) {
	bus := NewLocalBus()
	assert.ErrorIs(t, bus.PublishSettings(context.Background(), "w1"), ErrBusNotRunning)

	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx, rec.handlers()) }()

	require.Eventually(t, func() bool {
		return bus.PublishSettings(context.Background(), "w1") == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "w1", receive(t, rec.settings))

	require.NoError(t, bus.PublishChange(context.Background(), domain.ChangeEvent{DataSourceID: "ds", Kind: domain.ChangeRecords}))
	assert.Equal(t, "ds", receive(t, rec.changes).DataSourceID)

	cancel()
	require.NoError(t, receive(t, done))
	assert.ErrorIs(t, bus.PublishSettings(context.Background(), "w1"), ErrBusNotRunning)
}

func TestRedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	bus := NewRedisBus(rdb, "test:changes", "test:settings", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	go func() { _ = bus.Run(ctx, rec.handlers()) }()

	// Resync приходит после успешной подписки
	receive(t, rec.resyncs)

	require.NoError(t, bus.PublishChange(ctx, domain.ChangeEvent{
		DataSourceID: "parcels",
		Kind:         domain.ChangeFilter,
		Filter:       map[string]any{"zone": "b"},
	}))
	ev := receive(t, rec.changes)
	assert.Equal(t, "parcels", ev.DataSourceID)
	assert.Equal(t, domain.ChangeFilter, ev.Kind)
	assert.Equal(t, map[string]any{"zone": "b"}, ev.Filter)

	require.NoError(t, bus.PublishSettings(ctx, "w1"))
	assert.Equal(t, "w1", receive(t, rec.settings))

	// Компактная форма от внешних издателей
	mr.Publish("test:changes", "parcels:RECORDS")
	assert.Equal(t, domain.ChangeRecords, receive(t, rec.changes).Kind)

	// Мусор пропускается, слушатель живет дальше
	mr.Publish("test:changes", "garbage")
	require.NoError(t, bus.PublishSettings(ctx, "w2"))
	assert.Equal(t, "w2", receive(t, rec.settings))
}
