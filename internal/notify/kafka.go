package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

// KafkaConfig — подключение к топику уведомлений
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Подмножество *kafka.Reader и *kafka.Writer, которым пользуется шина
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBus — шина поверх одного топика; тип сообщения лежит в самом JSON.
// Каждый инстанс читает своей consumer group, иначе сообщения распределятся, а не разошлются всем.
type KafkaBus struct {
	cfg        KafkaConfig
	writer     messageWriter
	newReader  func(kafka.ReaderConfig) messageReader
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewKafkaBus(cfg KafkaConfig, logger *zap.Logger) *KafkaBus {
	return &KafkaBus{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		newReader:  func(rc kafka.ReaderConfig) messageReader { return kafka.NewReader(rc) },
		retryDelay: time.Second,
		logger:     logger.With(zap.String("mod", "kafka-bus")),
	}
}

func (b *KafkaBus) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := EncodeChange(ev)
	if err != nil {
		return err
	}
	return b.write(ctx, ev.DataSourceID, payload)
}

func (b *KafkaBus) PublishSettings(ctx context.Context, widgetID string) error {
	payload, err := EncodeSettings(widgetID)
	if err != nil {
		return err
	}
	return b.write(ctx, widgetID, payload)
}

func (b *KafkaBus) write(ctx context.Context, key string, payload []byte) error {
	// Ключ — ID источника/виджета: порядок событий одного объекта сохраняется в партиции
	if err := b.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		return fmt.Errorf("kafka: publish: %w", err)
	}
	return nil
}

func (b *KafkaBus) Run(ctx context.Context, h Handlers) error {
	reader := b.newReader(kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		Topic:       b.cfg.Topic,
		GroupID:     b.cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	b.logger.Info("bus listener started", zap.String("topic", b.cfg.Topic), zap.String("group", b.cfg.GroupID))
	h.resync()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			b.logger.Error("kafka read failed", zap.Error(err))
			if !sleepCtx(ctx, b.retryDelay) {
				return nil
			}
			continue
		}

		m, err := ParseMessage(msg.Value)
		if err != nil {
			b.logger.Error("invalid signal format", zap.ByteString("payload", msg.Value), zap.Error(err))
			continue
		}
		h.dispatch(m)
	}
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
