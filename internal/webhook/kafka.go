package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaStream publishes deliveries to a topic keyed by Delivery.Key, so all
// events of one booking land on the same partition in order.
type KafkaStream struct {
	writer *kafka.Writer
}

func NewKafkaStream(brokers []string, topic string, logger *zap.Logger) *KafkaStream {
	sugar := logger.Sugar()
	return &KafkaStream{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			BatchTimeout: 50 * time.Millisecond,
			Logger:       kafka.LoggerFunc(func(string, ...any) {}),
			ErrorLogger:  kafka.LoggerFunc(sugar.Errorf),
		},
	}
}

func (k *KafkaStream) Deliver(ctx context.Context, d Delivery) error {
	value, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(d.Key),
		Value: value,
		Time:  d.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(d.Event)},
			{Key: "delivery_id", Value: []byte(d.ID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s failed: %w", d.Event, err)
	}
	return nil
}

func (k *KafkaStream) Close() error {
	return k.writer.Close()
}
