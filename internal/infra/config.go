package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xela07ax/statindicator/internal/datasource"
)

// Config — корневая структура конфигурации сервиса индикаторов.
type Config struct {
	Server      ServerConfig                 `mapstructure:"server"`
	GRPC        GRPCConfig                   `mapstructure:"grpc"`
	Metrics     MetricsConfig                `mapstructure:"metrics"`
	Database    DatabaseConfig               `mapstructure:"database"`
	Redis       RedisConfig                  `mapstructure:"redis"`
	Kafka       KafkaConfig                  `mapstructure:"kafka"`
	Bus         BusConfig                    `mapstructure:"bus"`
	Auth        AuthConfig                   `mapstructure:"auth"`
	Logger      LoggerConfig                 `mapstructure:"logger"`
	Indicator   IndicatorConfig              `mapstructure:"indicator"`
	DataSources []datasource.SQLSourceConfig `mapstructure:"datasources"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GRPCConfig — порт health-сервиса для оркестратора
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig описывает подключение к PostgreSQL (настройки виджетов и история).
// Пустой URL — хранилище в памяти, история в лог.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// BusConfig выбирает транспорт уведомлений: local, redis, kafka
type BusConfig struct {
	Driver string `mapstructure:"driver"`
}

// AuthConfig — публичный ключ RS256 для проверки токенов редакторов настроек.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// IndicatorConfig — поведение виджетов и защита источников.
type IndicatorConfig struct {
	Locale string `mapstructure:"locale"` // Группировка разрядов при форматировании

	QueryRate  float64 `mapstructure:"query_rate"`
	QueryBurst int     `mapstructure:"query_burst"`

	// Настройки Circuit Breaker для источников данных
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`

	HistoryBufferSize    int           `mapstructure:"history_buffer_size"`
	HistoryFlushInterval time.Duration `mapstructure:"history_flush_interval"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла, .env и ENV.
func LoadConfig() (*Config, error) {
	// .env не обязателен: в Docker/K8s переменные приходят снаружи
	_ = godotenv.Load()

	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключ: сначала PEM прямо из ENV, потом файл
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("grpc.port", 50052)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.topic", "indicator-events")
	v.SetDefault("bus.driver", "local")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("indicator.locale", "en")
	v.SetDefault("indicator.query_rate", 50)
	v.SetDefault("indicator.query_burst", 10)
	v.SetDefault("indicator.cb_max_requests", 1)
	v.SetDefault("indicator.cb_interval", 10*time.Second)
	v.SetDefault("indicator.cb_timeout", 30*time.Second)
	v.SetDefault("indicator.cb_failures", 5)
	v.SetDefault("indicator.history_buffer_size", 1000)
	v.SetDefault("indicator.history_flush_interval", 1*time.Second)
}

func (c *Config) validate() error {
	switch c.Bus.Driver {
	case BusLocal, BusRedis:
	case BusKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: bus.driver=kafka requires kafka.brokers")
		}
	default:
		return fmt.Errorf("config: unknown bus.driver %q", c.Bus.Driver)
	}

	seen := make(map[string]struct{}, len(c.DataSources))
	for _, ds := range c.DataSources {
		if ds.ID == "" || ds.Driver == "" || ds.Table == "" {
			return fmt.Errorf("config: datasource requires id, driver and table")
		}
		if _, dup := seen[ds.ID]; dup {
			return fmt.Errorf("config: duplicate datasource %q", ds.ID)
		}
		seen[ds.ID] = struct{}{}
	}
	return nil
}

const (
	BusLocal = "local"
	BusRedis = "redis"
	BusKafka = "kafka"
)

func loadKeyResource(path string, envDataKey string) []byte {
	// Ключ прилетел напрямую в ENV (PEM)
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
