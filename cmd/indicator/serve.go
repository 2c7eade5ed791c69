package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/statindicator/internal/console/handler"
	"github.com/xela07ax/statindicator/internal/console/server"
	"github.com/xela07ax/statindicator/internal/console/service"
	"github.com/xela07ax/statindicator/internal/datasource"
	"github.com/xela07ax/statindicator/internal/history"
	"github.com/xela07ax/statindicator/internal/indicator"
	"github.com/xela07ax/statindicator/internal/infra"
	"github.com/xela07ax/statindicator/internal/infra/auth"
	"github.com/xela07ax/statindicator/internal/notify"
	"github.com/xela07ax/statindicator/internal/repository/memory"
	"github.com/xela07ax/statindicator/internal/repository/postgres"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the indicator service (HTTP API, change bus, metrics, health)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			logger, err := infra.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *infra.Config, logger *zap.Logger) error {
	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := indicator.NewMetrics(reg)

	// 2. Хранилище настроек и истории
	var (
		repo        service.WidgetRepository
		historyRepo history.Storage
	)
	if cfg.Database.URL != "" {
		pool, err := connectPostgres(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = postgres.NewWidgetRepo(pool)
		historyRepo = postgres.NewHistoryRepo(pool)
	} else {
		logger.Warn("database.url is empty: widget settings are kept in memory, history goes to the log")
		repo = memory.NewWidgetRepo()
		historyRepo = history.NewLogStorage(logger)
	}

	recorder := history.NewRecorder(historyRepo, history.Options{
		BufferSize:    cfg.Indicator.HistoryBufferSize,
		FlushInterval: cfg.Indicator.HistoryFlushInterval,
		OnFill:        func(n int) { metrics.HistoryBufferFill.Set(float64(n)) },
	}, logger)
	recorder.Start()
	defer recorder.Stop()

	// 3. Источники данных
	registry := datasource.NewRegistry(logger)
	closers, err := registerSources(registry, cfg, metrics)
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()
	if err != nil {
		return err
	}

	// 4. Ядро виджетов
	core := indicator.NewIndicator(registry, indicator.NewFormatter(cfg.Indicator.Locale), metrics, logger)
	manager := indicator.NewManager(core, metrics, logger, recorder.Hook)
	defer manager.Close()

	// 5. Шина уведомлений
	bus, closeBus, err := newBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	settingsSvc := service.NewSettingsService(repo, bus, manager, registry, logger)

	if err := manager.Bootstrap(ctx, repo); err != nil {
		return err
	}

	// 6. API
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		key, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			return err
		}
		validator = auth.NewRSAValidator(key)
	}
	api := server.NewAPIServer(logger,
		validator,
		handler.NewWidgetHandler(manager, settingsSvc, logger),
		handler.NewDataSourceHandler(settingsSvc, registry.IDs),
	)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	metricsSrv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Metrics.Port),
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	// 7. Запуск и Graceful Shutdown
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bus.Run(gCtx, service.BusHandlers(gCtx, repo, manager, registry, logger))
	})
	g.Go(func() error {
		logger.Info("indicator API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("failed to listen gRPC: %w", err)
		}
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		logger.Info("health gRPC server started", zap.String("addr", lis.Addr().String()))
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("indicator service stopping...")
		healthSrv.Shutdown()

		// Даем 5 секунд на завершение запросов
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("indicator service exited properly")
	return nil
}

func connectPostgres(ctx context.Context, cfg infra.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, cfg.URL, cfg.MaxConns, cfg.MinConns)
	if err != nil {
		return nil, err
	}
	if err := infra.WaitFor(ctx, logger, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// registerSources открывает SQL-источники из конфига и оборачивает их в защиту
func registerSources(registry *datasource.Registry, cfg *infra.Config, metrics *indicator.Metrics) ([]func() error, error) {
	var closers []func() error
	opts := datasource.GuardOptions{
		RatePerSecond: cfg.Indicator.QueryRate,
		Burst:         cfg.Indicator.QueryBurst,
		CBMaxRequests: cfg.Indicator.CBMaxRequests,
		CBInterval:    cfg.Indicator.CBInterval,
		CBTimeout:     cfg.Indicator.CBTimeout,
		CBFailures:    cfg.Indicator.CBFailures,
	}

	for _, dsCfg := range cfg.DataSources {
		db, err := datasource.OpenSQL(dsCfg.Driver, dsCfg.DSN)
		if err != nil {
			return closers, err
		}
		closers = append(closers, db.Close)

		src, err := datasource.NewSQLSource(db, dsCfg)
		if err != nil {
			return closers, fmt.Errorf("datasource %s: %w", dsCfg.ID, err)
		}
		guarded := datasource.NewGuardedSource(src, opts, metrics.BreakerStateHook)
		if err := registry.Register(guarded, src); err != nil {
			return closers, err
		}
	}
	return closers, nil
}

func newBus(ctx context.Context, cfg *infra.Config, logger *zap.Logger) (notify.Bus, func(), error) {
	switch cfg.Bus.Driver {
	case infra.BusRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		if err := infra.WaitFor(ctx, logger, "redis", ping); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		bus := notify.NewRedisBus(rdb, infra.RedisChanDataSourceChanges, infra.RedisChanWidgetSettings, logger)
		return bus, func() { _ = rdb.Close() }, nil

	case infra.BusKafka:
		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			// Своя группа на инстанс: каждый должен получить все сообщения
			groupID = "indicator-" + uuid.NewString()
		}
		bus := notify.NewKafkaBus(notify.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: groupID,
		}, logger)
		return bus, func() { _ = bus.Close() }, nil

	default:
		return notify.NewLocalBus(), func() {}, nil
	}
}
