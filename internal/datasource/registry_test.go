package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

func TestRegistry_ResolveAndDispatch(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	src := NewMemorySource("parcels", []domain.Record{{"v": 1, "zone": "a"}, {"v": 2, "zone": "b"}})
	require.NoError(t, r.Register(src, src))
	assert.Error(t, r.Register(src, src))
	assert.Equal(t, []string{"parcels"}, r.IDs())

	h, err := r.Resolve(context.Background(), "parcels")
	require.NoError(t, err)
	assert.Equal(t, "parcels", h.ID())

	var got []domain.ChangeEvent
	unsub := h.Subscribe(func(ev domain.ChangeEvent) { got = append(got, ev) })
	defer unsub()

	ev := domain.ChangeEvent{DataSourceID: "parcels", Kind: domain.ChangeFilter, Filter: map[string]any{"zone": "b"}}
	require.NoError(t, r.Dispatch(ev))
	require.Len(t, got, 1)
	assert.Equal(t, domain.ChangeFilter, got[0].Kind)

	// Фильтр применен до уведомления
	res, err := h.Query(context.Background(), domain.QueryRequest{Field: "v"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{"v": 2}}, res.Records)
}

func TestRegistry_Unknown(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	_, err := r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDataSourceNotFound)

	err = r.Dispatch(domain.ChangeEvent{DataSourceID: "missing", Kind: domain.ChangeRecords})
	assert.ErrorIs(t, err, domain.ErrDataSourceNotFound)
}

func TestRegistry_FilterWithoutConditionKeepsFilter(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	src := NewMemorySource("parcels", []domain.Record{{"v": 1, "zone": "a"}, {"v": 2, "zone": "b"}})
	src.SetFilter(map[string]any{"zone": "a"})
	require.NoError(t, r.Register(src, src))

	h, err := r.Resolve(context.Background(), "parcels")
	require.NoError(t, err)
	var got []domain.ChangeEvent
	unsub := h.Subscribe(func(ev domain.ChangeEvent) { got = append(got, ev) })
	defer unsub()

	// Компактный сигнал "parcels:FILTER" приходит без условия
	require.NoError(t, r.Dispatch(domain.ChangeEvent{DataSourceID: "parcels", Kind: domain.ChangeFilter}))
	require.Len(t, got, 1)
	assert.Equal(t, domain.ChangeRecords, got[0].Kind)
	assert.Equal(t, map[string]any{"zone": "a"}, src.Filter())

	// Пустой объект сбрасывает фильтр
	require.NoError(t, r.Dispatch(domain.ChangeEvent{DataSourceID: "parcels", Kind: domain.ChangeFilter, Filter: map[string]any{}}))
	require.Len(t, got, 2)
	assert.Equal(t, domain.ChangeFilter, got[1].Kind)
	res, err := h.Query(context.Background(), domain.QueryRequest{Field: "v"})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}
