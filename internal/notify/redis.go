package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

// RedisBus — Pub/Sub шина: один канал для изменений источников, второй для настроек
type RedisBus struct {
	rdb             *redis.Client
	changeChannel   string
	settingsChannel string
	logger          *zap.Logger
	retryDelay      time.Duration
}

func NewRedisBus(rdb *redis.Client, changeChannel, settingsChannel string, logger *zap.Logger) *RedisBus {
	return &RedisBus{
		rdb:             rdb,
		changeChannel:   changeChannel,
		settingsChannel: settingsChannel,
		logger:          logger.With(zap.String("mod", "redis-bus")),
		retryDelay:      5 * time.Second,
	}
}

func (b *RedisBus) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := EncodeChange(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.changeChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish change: %w", err)
	}
	return nil
}

func (b *RedisBus) PublishSettings(ctx context.Context, widgetID string) error {
	payload, err := EncodeSettings(widgetID)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.settingsChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish settings: %w", err)
	}
	return nil
}

// Run — «живучая» подписка: переподключается, после каждого успешного
// подключения вызывает OnResync, разбирает и раздает сообщения.
func (b *RedisBus) Run(ctx context.Context, h Handlers) error {
	for {
		pubsub := b.rdb.Subscribe(ctx, b.changeChannel, b.settingsChannel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error("failed to subscribe", zap.Strings("chan", []string{b.changeChannel, b.settingsChannel}), zap.Error(err))
			if !sleepCtx(ctx, b.retryDelay) {
				return nil
			}
			continue
		}

		b.logger.Info("bus listener subscribed")
		h.resync()

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return nil
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				m, err := ParseMessage([]byte(msg.Payload))
				if err != nil {
					b.logger.Error("invalid signal format", zap.String("chan", msg.Channel), zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				h.dispatch(m)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
