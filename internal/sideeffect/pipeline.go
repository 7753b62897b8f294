// Package sideeffect runs the best-effort work that follows a committed
// booking change: door codes, guest notifications and webhooks.
package sideeffect

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/lockcode"
	"github.com/kystlys/stay-engine/internal/notify"
	"github.com/kystlys/stay-engine/internal/queue"
	"github.com/kystlys/stay-engine/internal/webhook"
)

type LockService interface {
	Provision(ctx context.Context, in lockcode.ProvisionInput) (*lockcode.Record, error)
	Revoke(ctx context.Context, bookingID string) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) notify.Outcome
}

// enqueueTimeout bounds a single broker publish.
const enqueueTimeout = 3 * time.Second

type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Pipeline dispatches lifecycle events. Any collaborator may be nil, in
// which case its step is skipped.
type Pipeline struct {
	locks       LockService
	notifier    Notifier
	queue       Enqueuer
	maxAttempts int
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewPipeline(locks LockService, notifier Notifier, q Enqueuer, maxAttempts int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		locks:       locks,
		notifier:    notifier,
		queue:       q,
		maxAttempts: maxAttempts,
		logger:      logger,
		tracer:      otel.Tracer("stay-engine/sideeffect"),
	}
}

// Dispatch runs the steps for ev in order. The lock step finishes before the
// notification so an active passcode can be included. Webhooks are only
// enqueued here and delivered by the queue worker.
func (p *Pipeline) Dispatch(ctx context.Context, ev Event, snap Snapshot) Result {
	// The booking is already committed; a client hanging up must not cut
	// the follow-up work short.
	ctx = context.WithoutCancel(ctx)
	ctx, span := p.tracer.Start(ctx, "sideeffect.dispatch", trace.WithAttributes(
		attribute.String("booking.id", snap.BookingID),
		attribute.String("booking.event", string(ev)),
	))
	defer span.End()

	log := p.logger.With(zap.String("booking_id", snap.BookingID), zap.String("event", string(ev)))
	var res Result

	switch ev {
	case EventCreated:
		res.Notification = p.notify(ctx, log, notify.TemplateBookingReceived, snap, "")
		res.Webhook = p.enqueue(ctx, log, snap, webhook.EventBookingCreated)

	case EventConfirmed:
		var passcode string
		res.Lock, passcode = p.provision(ctx, log, snap)
		res.Notification = p.notify(ctx, log, notify.TemplateBookingConfirmed, snap, passcode)
		res.Webhook = p.enqueue(ctx, log, snap, webhook.EventBookingConfirmed)

	case EventCancelled:
		res.Lock = p.revoke(ctx, log, snap)
		res.Notification = p.notify(ctx, log, notify.TemplateBookingCancelled, snap, "")
		res.Webhook = p.enqueue(ctx, log, snap, webhook.EventBookingCancelled, webhook.EventRoomVacant)

	case EventCheckedOut:
		res.Lock = p.revoke(ctx, log, snap)
		res.Webhook = p.enqueue(ctx, log, snap, webhook.EventBookingCheckedOut, webhook.EventRoomVacant)

	default:
		log.Warn("unknown lifecycle event, no side effects")
	}

	if res.failed() {
		span.SetStatus(codes.Error, "side effect failed")
	}
	return res
}

func (r Result) failed() bool {
	return (r.Lock != nil && r.Lock.Status == StatusFailed) ||
		(r.Notification != nil && r.Notification.Failed()) ||
		(r.Webhook != nil && r.Webhook.Status == StatusFailed)
}

// guard turns a panic in one step into an error so the remaining steps run.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (p *Pipeline) provision(ctx context.Context, log *zap.Logger, snap Snapshot) (*LockResult, string) {
	res := &LockResult{Action: "provision"}
	if snap.LockID == nil || *snap.LockID == "" || p.locks == nil {
		res.Status = StatusSkipped
		return res, ""
	}

	ctx, span := p.tracer.Start(ctx, "lockcode.provision")
	defer span.End()

	var rec *lockcode.Record
	err := guard(func() error {
		var err error
		rec, err = p.locks.Provision(ctx, lockcode.ProvisionInput{
			BookingID: snap.BookingID,
			LockID:    *snap.LockID,
			UnitLabel: snap.UnitLabel,
			CheckIn:   snap.CheckIn,
			CheckOut:  snap.CheckOut,
		})
		return err
	})
	if rec != nil {
		res.CodeStatus = string(rec.Status)
	}
	if err != nil {
		span.RecordError(err)
		log.Warn("lock code provisioning failed, notifying without code", zap.Error(err))
		res.Status = StatusFailed
		res.Error = err.Error()
		return res, ""
	}

	res.Status = StatusOK
	if rec != nil && rec.Status == lockcode.StatusActive && rec.Passcode != nil {
		return res, *rec.Passcode
	}
	return res, ""
}

func (p *Pipeline) revoke(ctx context.Context, log *zap.Logger, snap Snapshot) *LockResult {
	res := &LockResult{Action: "revoke"}
	if p.locks == nil {
		res.Status = StatusSkipped
		return res
	}

	ctx, span := p.tracer.Start(ctx, "lockcode.revoke")
	defer span.End()

	err := guard(func() error {
		n, err := p.locks.Revoke(ctx, snap.BookingID)
		res.Revoked = n
		return err
	})
	if err != nil {
		span.RecordError(err)
		log.Warn("lock code revocation failed", zap.Error(err))
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	res.Status = StatusOK
	return res
}

func (p *Pipeline) notify(ctx context.Context, log *zap.Logger, template string, snap Snapshot, passcode string) *notify.Outcome {
	if p.notifier == nil {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "notify.send", trace.WithAttributes(attribute.String("notify.template", template)))
	defer span.End()

	data := map[string]any{
		"booking_id":  snap.BookingID,
		"guest_name":  snap.GuestName,
		"room_type":   snap.RoomTypeName,
		"unit":        snap.UnitLabel,
		"check_in":    snap.CheckIn.Format("2006-01-02"),
		"check_out":   snap.CheckOut.Format("2006-01-02"),
		"guests":      snap.Guests,
		"total_price": snap.TotalPrice,
	}
	if passcode != "" {
		data["passcode"] = passcode
	}

	var out notify.Outcome
	err := guard(func() error {
		out = p.notifier.Notify(ctx, notify.Message{
			Template: template,
			Email:    snap.GuestEmail,
			Phone:    snap.GuestPhone,
			Data:     data,
		})
		return nil
	})
	if err != nil {
		out = notify.Outcome{
			Email: notify.ChannelOutcome{Error: err.Error()},
			SMS:   notify.ChannelOutcome{Error: err.Error()},
		}
	}
	if out.Failed() {
		span.SetStatus(codes.Error, "notification failed")
		log.Warn("guest notification failed",
			zap.String("template", template),
			zap.String("email_error", out.Email.Error),
			zap.String("sms_error", out.SMS.Error),
		)
	}
	return &out
}

// vacancy is the room.vacant payload.
type vacancy struct {
	RoomTypeID string  `json:"room_type_id"`
	UnitID     *string `json:"unit_id"`
	UnitLabel  string  `json:"unit_label,omitempty"`
	BookingID  string  `json:"booking_id"`
	From       string  `json:"from"`
	Until      string  `json:"until"`
}

func (p *Pipeline) enqueue(ctx context.Context, log *zap.Logger, snap Snapshot, events ...string) *WebhookResult {
	if p.queue == nil {
		return &WebhookResult{Status: StatusSkipped}
	}
	res := &WebhookResult{Status: StatusQueued}

	for _, event := range events {
		var payload any = snap
		if event == webhook.EventRoomVacant {
			payload = vacancy{
				RoomTypeID: snap.RoomTypeID,
				UnitID:     snap.UnitID,
				UnitLabel:  snap.UnitLabel,
				BookingID:  snap.BookingID,
				From:       snap.CheckIn.Format("2006-01-02"),
				Until:      snap.CheckOut.Format("2006-01-02"),
			}
		}

		err := guard(func() error {
			d, err := webhook.NewDelivery(uuid.NewString(), event, snap.BookingID, payload)
			if err != nil {
				return err
			}
			task, err := webhook.NewTask(d, p.maxAttempts)
			if err != nil {
				return err
			}
			ectx, cancel := context.WithTimeout(ctx, enqueueTimeout)
			defer cancel()
			return p.queue.Enqueue(ectx, task)
		})
		if err != nil {
			log.Error("webhook enqueue failed", zap.String("webhook_event", event), zap.Error(err))
			res.Status = StatusFailed
			res.Error = err.Error()
			continue
		}
		res.Events = append(res.Events, event)
	}
	return res
}
