package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/statindicator/internal/domain"
)

func TestMemorySource_QueryProjectsField(t *testing.T) {
	src := NewMemorySource("parcels", []domain.Record{
		{"area": 500, "zone": "a"},
		{"area": 1500, "zone": "b"},
		{"zone": "a"},
	})

	res, err := src.Query(context.Background(), domain.QueryRequest{Field: "area"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{"area": 500}, {"area": 1500}, {"area": nil}}, res.Records)
}

func TestMemorySource_Filter(t *testing.T) {
	src := NewMemorySource("parcels", []domain.Record{
		{"area": 500, "zone": "a", "year": 2020},
		{"area": 1500, "zone": "b", "year": 2021},
		{"area": 7, "zone": "a", "year": 2021},
	})

	src.SetFilter(map[string]any{"zone": "a", "year": 2021.0})
	res, err := src.Query(context.Background(), domain.QueryRequest{Field: "area"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{"area": 7}}, res.Records)
	assert.Equal(t, map[string]any{"zone": "a", "year": 2021.0}, src.Filter())

	src.SetFilter(nil)
	res, err = src.Query(context.Background(), domain.QueryRequest{Field: "area"})
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
}

func TestMemorySource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemorySource("x", nil).Query(ctx, domain.QueryRequest{Field: "v"})
	assert.ErrorIs(t, err, context.Canceled)
}
