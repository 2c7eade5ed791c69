package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/statindicator/internal/domain"
	"github.com/xela07ax/statindicator/internal/history"
)

// Интеграционные тесты: нужен живой Postgres в TEST_DATABASE_URL
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, EnsureSchema(ctx, pool))
	return pool
}

func TestWidgetRepo_CRUD(t *testing.T) {
	pool := testPool(t)
	repo := NewWidgetRepo(pool)
	ctx := context.Background()
	id := "test-" + uuid.NewString()

	field := "area"
	divisor := 1000.0
	in := domain.WidgetSettings{
		ID:             id,
		UseDataSources: []domain.DataSourceRef{{DataSourceID: "parcels"}},
		Config:         domain.RawConfig{StatisticField: &field, Divisor: &divisor},
		UpdatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.SaveWidget(ctx, in))

	got, err := repo.GetWidget(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in.Config, got.Config)
	assert.Equal(t, "parcels", got.DataSource().DataSourceID)
	assert.True(t, in.UpdatedAt.Equal(got.UpdatedAt))

	// Снятие выбора источника
	in.UseDataSources = nil
	require.NoError(t, repo.SaveWidget(ctx, in))
	got, err = repo.GetWidget(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.UseDataSources)

	all, err := repo.ListWidgets(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	require.NoError(t, repo.DeleteWidget(ctx, id))
	assert.ErrorIs(t, repo.DeleteWidget(ctx, id), domain.ErrWidgetNotFound)
	_, err = repo.GetWidget(ctx, id)
	assert.ErrorIs(t, err, domain.ErrWidgetNotFound)
}

func TestHistoryRepo_WriteBatch(t *testing.T) {
	pool := testPool(t)
	repo := NewHistoryRepo(pool)
	ctx := context.Background()
	widget := "test-" + uuid.NewString()

	v := 2.0
	recs := []history.Record{
		{ID: uuid.NewString(), WidgetID: widget, Status: "DISPLAY", PrimaryValue: &v, Timestamp: time.Now()},
		{ID: uuid.NewString(), WidgetID: widget, Status: "ERROR", Error: "network error", Timestamp: time.Now()},
	}
	require.NoError(t, repo.WriteBatch(ctx, recs))
	require.NoError(t, repo.WriteBatch(ctx, nil))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM refresh_history WHERE widget_id = $1`, widget).Scan(&n))
	assert.Equal(t, 2, n)
}
