// Package webhook delivers lifecycle events to external systems: signed
// HTTP POSTs to configured URLs and, when brokers are configured, a Kafka
// event stream.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kystlys/stay-engine/internal/kvstore"
	"github.com/kystlys/stay-engine/internal/queue"
)

// TaskKind is the queue task kind that carries a Delivery.
const TaskKind = "webhook.deliver"

const (
	EventBookingCreated    = "booking.created"
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingCheckedOut = "booking.checked_out"
	EventRoomVacant        = "room.vacant"
)

// Delivery is one event occurrence. Key orders deliveries on the stream,
// normally the booking id.
type Delivery struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// Target is a named destination. The name keys its delivery record, so it
// must stay stable across restarts.
type Target struct {
	Name string
	Deliverer
}

// Fanout delivers to every target; one failing target does not stop the
// rest. Targets that accepted a delivery are recorded under its id, so a
// retried task only reaches the targets that failed. A success that could
// not be recorded is delivered again, and receivers drop the duplicate by
// its X-Webhook-Delivery id.
type Fanout struct {
	targets []Target
	seen    kvstore.Store
	ttl     time.Duration
}

func NewFanout(seen kvstore.Store, ttl time.Duration, targets ...Target) *Fanout {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Fanout{targets: targets, seen: seen, ttl: ttl}
}

// Len reports the number of targets.
func (f *Fanout) Len() int {
	return len(f.targets)
}

func (f *Fanout) Deliver(ctx context.Context, d Delivery) error {
	var errs []error
	for _, t := range f.targets {
		key := "webhook:" + d.ID + ":" + t.Name
		if _, err := f.seen.Get(ctx, key); err == nil {
			continue
		}
		if err := t.Deliver(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		_ = f.seen.Set(ctx, key, d.Event, f.ttl)
	}
	return errors.Join(errs...)
}

// NewDelivery wraps payload for the given event.
func NewDelivery(id, event, key string, payload any) (Delivery, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Delivery{}, fmt.Errorf("marshal webhook payload failed: %w", err)
	}
	return Delivery{
		ID:         id,
		Event:      event,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// NewTask packs a delivery for the queue.
func NewTask(d Delivery, maxAttempts int) (queue.Task, error) {
	return queue.NewTask(TaskKind, d, maxAttempts)
}

// Handler executes webhook tasks taken off the queue.
func Handler(target Deliverer) queue.HandlerFunc {
	return func(ctx context.Context, t queue.Task) error {
		var d Delivery
		if err := json.Unmarshal(t.Payload, &d); err != nil {
			// Retrying cannot fix a malformed payload.
			return nil
		}
		return target.Deliver(ctx, d)
	}
}
