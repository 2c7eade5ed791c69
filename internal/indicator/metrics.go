package indicator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Сколько пересчетов закончилось каждым статусом (DISPLAY, ERROR, IDLE)
	RefreshTotal *prometheus.CounterVec

	// Длительность запроса к источнику
	RefreshDuration *prometheus.HistogramVec

	// Ответы, пришедшие после более нового refresh и выброшенные
	SupersededTotal prometheus.Counter

	// Подписки виджетов на изменения источников
	ActiveSubscriptions prometheus.Gauge

	// Состояние Circuit Breaker источника (0 - ок, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Заполненность буфера истории (backpressure)
	HistoryBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RefreshTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "indicator_refresh_total",
			Help: "Total number of committed widget refreshes by status.",
		}, []string{"status"}),

		RefreshDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indicator_refresh_duration_seconds",
			Help:    "Histogram of data source query latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"data_source", "status"}),

		SupersededTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "indicator_superseded_total",
			Help: "Refresh results discarded because a newer refresh was issued.",
		}),

		ActiveSubscriptions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "indicator_active_subscriptions",
			Help: "Current number of widget subscriptions to data source changes.",
		}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "indicator_circuit_breaker_state",
			Help: "Current state of the data source circuit breaker (0=closed, 1=open).",
		}, []string{"data_source"}),

		HistoryBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "indicator_history_buffer_utilization",
			Help: "Current number of refresh records waiting in the history buffer.",
		}),
	}
}

// BreakerStateHook — колбэк для datasource.NewGuardedSource
func (m *Metrics) BreakerStateHook(id string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitBreakerState.WithLabelValues(id).Set(v)
}
