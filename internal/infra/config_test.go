package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/statindicator/internal/datasource"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, BusLocal, cfg.Bus.Driver)
	assert.Equal(t, "en", cfg.Indicator.Locale)
	assert.Equal(t, uint32(5), cfg.Indicator.CBFailures)
	assert.Equal(t, 1000, cfg.Indicator.HistoryBufferSize)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("BUS_DRIVER", "redis")
	t.Setenv("INDICATOR_LOCALE", "ru")
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, BusRedis, cfg.Bus.Driver)
	assert.Equal(t, "ru", cfg.Indicator.Locale)
	assert.Equal(t, []byte("-----BEGIN PUBLIC KEY-----"), cfg.Auth.PublicKey)
}

func TestLoadConfig_UnknownBus(t *testing.T) {
	t.Setenv("BUS_DRIVER", "carrier-pigeon")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "unknown bus.driver")
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config { return Config{Bus: BusConfig{Driver: BusLocal}} }

	cfg := base()
	cfg.Bus.Driver = BusKafka
	assert.Error(t, cfg.validate())
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.validate())

	cfg = base()
	cfg.DataSources = []datasource.SQLSourceConfig{{ID: "a", Driver: "sqlite3"}}
	assert.ErrorContains(t, cfg.validate(), "requires id, driver and table")

	cfg.DataSources = []datasource.SQLSourceConfig{
		{ID: "a", Driver: "sqlite3", Table: "t"},
		{ID: "a", Driver: "pgx", Table: "t"},
	}
	assert.ErrorContains(t, cfg.validate(), "duplicate datasource")
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LoggerConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestWaitFor(t *testing.T) {
	attempts := 0
	err := WaitFor(context.Background(), zap.NewNop(), "flaky", func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWaitFor_GivesUpOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitFor(ctx, zap.NewNop(), "postgres", func(context.Context) error {
		return errors.New("connection refused")
	})
	assert.ErrorContains(t, err, "postgres unreachable")
}
