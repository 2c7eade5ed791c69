package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/xela07ax/statindicator/internal/domain"
	"golang.org/x/time/rate"
)

// GuardOptions — настройки защиты источника от шторма обновлений
type GuardOptions struct {
	RatePerSecond float64
	Burst         int
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	CBFailures    uint32 // Подряд идущие ошибки до размыкания
}

// GuardedSource оборачивает Source в rate limiter и circuit breaker.
// Ретраев здесь нет: упавший запрос показывается в виджете как есть.
type GuardedSource struct {
	next    Source
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuardedSource; onState получает true, когда предохранитель разомкнут.
func NewGuardedSource(next Source, opts GuardOptions, onState func(id string, open bool)) *GuardedSource {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 50
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.CBFailures == 0 {
		opts.CBFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "datasource:" + next.ID(),
		MaxRequests: opts.CBMaxRequests,
		Interval:    opts.CBInterval,
		Timeout:     opts.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.CBFailures
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			if onState != nil {
				onState(next.ID(), to == gobreaker.StateOpen)
			}
		},
	})

	return &GuardedSource{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
	}
}

func (g *GuardedSource) ID() string { return g.next.ID() }

func (g *GuardedSource) Query(ctx context.Context, req domain.QueryRequest) (domain.QueryResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.QueryResult{}, fmt.Errorf("rate limit exceeded: %w", err)
	}

	res, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Query(ctx, req)
	})
	if err != nil {
		return domain.QueryResult{}, err
	}
	return res.(domain.QueryResult), nil
}

// State — текущее состояние предохранителя
func (g *GuardedSource) State() gobreaker.State {
	return g.cb.State()
}
