package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitQueue stores tasks in a durable RabbitMQ queue as persistent JSON
// messages. Publishing shares one channel; consuming reconnects with
// exponential backoff when the broker goes away.
type RabbitQueue struct {
	url    string
	name   string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitQueue(url, name string, logger *zap.Logger) (*RabbitQueue, error) {
	q := &RabbitQueue{url: url, name: name, logger: logger}
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.connectLocked(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *RabbitQueue) connectLocked() error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}
	q.conn, q.ch = conn, ch
	return nil
}

func (q *RabbitQueue) Enqueue(ctx context.Context, t Task) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task failed: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    t.ID,
		Type:         t.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch == nil || q.ch.IsClosed() {
		if err := q.connectLocked(); err != nil {
			return err
		}
	}
	if err := q.ch.PublishWithContext(ctx, "", q.name, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish failed: %w", err)
	}
	return nil
}

// Consume runs until ctx is done, reconnecting on broker failures.
func (q *RabbitQueue) Consume(ctx context.Context, fn func(ctx context.Context, t Task)) error {
	wait := time.Second
	for {
		conn, err := amqp.Dial(q.url)
		if err != nil {
			q.logger.Warn("rabbitmq consumer dial failed", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			if wait < 30*time.Second {
				wait *= 2
			}
			continue
		}
		wait = time.Second

		err = q.consumeLoop(ctx, conn, fn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		q.logger.Warn("rabbitmq consume loop ended, reconnecting", zap.Error(err))
	}
}

func (q *RabbitQueue) consumeLoop(ctx context.Context, conn *amqp.Connection, fn func(ctx context.Context, t Task)) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		q.logger.Warn("rabbitmq set qos failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			var t Task
			if err := json.Unmarshal(d.Body, &t); err != nil {
				q.logger.Error("dropping undecodable task", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			fn(ctx, t)
			_ = d.Ack(false)
		}
	}
}

func (q *RabbitQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	var err error
	if q.ch != nil {
		err = errors.Join(err, q.ch.Close())
	}
	if q.conn != nil {
		err = errors.Join(err, q.conn.Close())
	}
	q.ch, q.conn = nil, nil
	return err
}
