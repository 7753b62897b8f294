package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/inventory"
	"github.com/kystlys/stay-engine/internal/kvstore"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/sideeffect"
)

type CreateRequest struct {
	RoomTypeID string    `validate:"required,uuid"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required"`
	Guests     int       `validate:"min=1,max=50"`
	GuestName  string    `validate:"required,max=200"`
	GuestEmail string    `validate:"omitempty,email,max=254"`
	GuestPhone string    `validate:"omitempty,min=5,max=32"`
	Source     string    `validate:"omitempty,max=32"`
	Notes      string    `validate:"max=2000"`

	// IdempotencyKey makes retries of the same reservation return the
	// original booking instead of creating another.
	IdempotencyKey string `validate:"omitempty,max=200"`
}

type CreateResult struct {
	Booking     *Booking
	Quote       inventory.Quote
	SideEffects sideeffect.Result
	Replayed    bool
}

type TransitionResult struct {
	Booking     *Booking
	Changed     bool
	SideEffects sideeffect.Result
}

// SideEffects runs the follow-up work of a committed lifecycle change.
type SideEffects interface {
	Dispatch(ctx context.Context, ev sideeffect.Event, snap sideeffect.Snapshot) sideeffect.Result
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Transition(ctx context.Context, id string, target Status) (*TransitionResult, error)
	Update(ctx context.Context, id string, p Patch) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
}

type Options struct {
	IdempotencyTTL time.Duration
	Now            func() time.Time
}

type service struct {
	store    Store
	effects  SideEffects
	kv       kvstore.Store
	logger   *zap.Logger
	validate *validator.Validate
	tracer   trace.Tracer
	opts     Options
}

func NewService(store Store, effects SideEffects, kv kvstore.Store, logger *zap.Logger, opts Options) Service {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if kv == nil {
		kv = kvstore.NewMemoryStore(0)
	}
	return &service{
		store:    store,
		effects:  effects,
		kv:       kv,
		logger:   logger,
		validate: validator.New(),
		tracer:   otel.Tracer("stay-engine/booking"),
		opts:     opts,
	}
}

func (s *service) validateCreate(req *CreateRequest) error {
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestEmail = strings.TrimSpace(req.GuestEmail)
	req.GuestPhone = strings.TrimSpace(req.GuestPhone)
	if req.Source == "" {
		req.Source = "direct"
	}

	if err := s.validate.Struct(req); err != nil {
		return ErrInvalidInput.WithDetails(map[string]any{"reason": err.Error()})
	}
	if req.GuestEmail == "" && req.GuestPhone == "" {
		return ErrContactRequired
	}

	req.CheckIn, req.CheckOut = dates.Day(req.CheckIn), dates.Day(req.CheckOut)
	if !req.CheckOut.After(req.CheckIn) {
		return ErrInvalidRange
	}
	if n := dates.NightCount(req.CheckIn, req.CheckOut); n > MaxNights {
		return ErrStayTooLong.WithDetails(map[string]any{"nights": n, "max_nights": MaxNights})
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("room_type.id", req.RoomTypeID),
	))
	defer span.End()

	res, err := s.create(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", res.Booking.ID), attribute.Bool("booking.replayed", res.Replayed))
	return res, nil
}

func (s *service) create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := s.validateCreate(&req); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		replay, err := s.claimIdempotencyKey(ctx, req)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	b := &Booking{
		RoomTypeID:    req.RoomTypeID,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		Guests:        req.Guests,
		GuestName:     req.GuestName,
		GuestEmail:    req.GuestEmail,
		GuestPhone:    req.GuestPhone,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Source:        req.Source,
		Notes:         req.Notes,
	}
	var quote inventory.Quote

	err := s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.LockRoomType(ctx, req.RoomTypeID); err != nil {
			return err
		}

		check, err := inventory.NewResolver(tx.Inventory()).CheckStay(ctx, req.RoomTypeID, req.CheckIn, req.CheckOut)
		if err != nil {
			return err
		}
		if check.RoomType == nil || !check.RoomType.IsActive {
			return ErrRoomTypeNotFound
		}
		if req.Guests > check.RoomType.MaxGuests {
			return ErrTooManyGuests.WithDetails(map[string]any{"max_guests": check.RoomType.MaxGuests})
		}
		if nights := len(check.Nights); nights < check.MinStay {
			return ErrMinStay.WithDetails(map[string]any{"min_stay": check.MinStay, "nights": nights})
		}
		if len(check.SoldOut) > 0 {
			sold := make([]string, len(check.SoldOut))
			for i, d := range check.SoldOut {
				sold[i] = dates.Format(d)
			}
			return ErrCapacityExhausted.WithDetails(map[string]any{"sold_out": sold})
		}
		if check.Assignment.UnitsDefined && check.Assignment.UnitID == nil {
			return ErrCapacityExhausted.WithDetails(map[string]any{"reason": "no unit free for the whole stay"})
		}

		quote = check.Quote
		b.RoomTypeName = check.RoomType.Name
		b.TotalPrice = quote.Total
		b.UnitID = check.Assignment.UnitID
		b.LockID = check.Assignment.LockID
		if b.UnitID != nil {
			label := check.Assignment.UnitLabel
			b.UnitLabel = &label
		}
		return tx.Insert(ctx, b)
	})
	if err != nil {
		s.releaseIdempotencyKey(ctx, req.IdempotencyKey)
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("room_type_id", b.RoomTypeID),
		zap.String("check_in", dates.Format(b.CheckIn)),
		zap.String("check_out", dates.Format(b.CheckOut)),
		zap.Int64("total_price", b.TotalPrice),
	)
	s.storeIdempotencyKey(ctx, req, b.ID)

	return &CreateResult{
		Booking:     b,
		Quote:       quote,
		SideEffects: s.dispatch(ctx, sideeffect.EventCreated, b),
	}, nil
}

func idempotencyKey(key string) string {
	return "idem:booking:" + key
}

// fingerprint identifies the reservation a key was first used for.
func fingerprint(req CreateRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s|%s|%s",
		req.RoomTypeID, dates.Format(req.CheckIn), dates.Format(req.CheckOut),
		req.Guests, strings.ToLower(req.GuestName), strings.ToLower(req.GuestEmail), req.GuestPhone)
	return hex.EncodeToString(h.Sum(nil))
}

// claimIdempotencyKey returns a replayed result when the key already maps to
// a booking, or claims the key for this request.
func (s *service) claimIdempotencyKey(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	key := idempotencyKey(req.IdempotencyKey)
	fp := fingerprint(req)

	claimed, err := s.kv.SetNX(ctx, key, "pending "+fp, s.opts.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key failed: %w", err)
	}
	if claimed {
		return nil, nil
	}

	val, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		// Expired between the two calls; treat as a fresh request.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key failed: %w", err)
	}

	bookingID, storedFP, _ := strings.Cut(val, " ")
	if storedFP != fp {
		return nil, ErrIdempotencyMismatch
	}
	if bookingID == "pending" {
		return nil, ErrIdempotencyInFlight
	}

	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Booking: b, Quote: inventory.Quote{Total: b.TotalPrice}, Replayed: true}, nil
}

func (s *service) storeIdempotencyKey(ctx context.Context, req CreateRequest, bookingID string) {
	if req.IdempotencyKey == "" {
		return
	}
	val := bookingID + " " + fingerprint(req)
	if err := s.kv.Set(ctx, idempotencyKey(req.IdempotencyKey), val, s.opts.IdempotencyTTL); err != nil {
		s.logger.Warn("store idempotency key failed", zap.String("booking_id", bookingID), zap.Error(err))
	}
}

func (s *service) releaseIdempotencyKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.kv.Delete(context.WithoutCancel(ctx), idempotencyKey(key)); err != nil {
		s.logger.Warn("release idempotency key failed", zap.Error(err))
	}
}

var transitionEvents = map[Status]sideeffect.Event{
	StatusConfirmed:  sideeffect.EventConfirmed,
	StatusCancelled:  sideeffect.EventCancelled,
	StatusCheckedOut: sideeffect.EventCheckedOut,
}

func (s *service) Transition(ctx context.Context, id string, target Status) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.transition", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("booking.target", string(target)),
	))
	defer span.End()

	res, err := s.transition(ctx, id, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("booking.changed", res.Changed))
	return res, nil
}

func (s *service) transition(ctx context.Context, id string, target Status) (*TransitionResult, error) {
	if !target.Valid() {
		return nil, ErrInvalidStatus
	}

	var (
		b       *Booking
		changed bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == target {
			return nil
		}
		if !CanTransition(b.Status, target) {
			return ErrIllegalTransition.WithDetails(map[string]any{
				"from": string(b.Status),
				"to":   string(target),
			})
		}

		b.Status = target
		if target == StatusConfirmed {
			now := s.opts.Now().UTC()
			b.ConfirmedAt = &now
		}
		changed = true
		return tx.UpdateStatus(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	res := &TransitionResult{Booking: b, Changed: changed}
	if !changed {
		return res, nil
	}

	s.logger.Info("booking transitioned",
		zap.String("booking_id", b.ID),
		zap.String("status", string(b.Status)),
		zap.Int("version", b.Version),
	)
	res.SideEffects = s.dispatch(ctx, transitionEvents[target], b)
	return res, nil
}

func (s *service) Update(ctx context.Context, id string, p Patch) (*Booking, error) {
	if p.Empty() {
		return nil, ErrEmptyPatch
	}
	p = p.Normalized()

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if ps, ok := p.PaymentStatus.Get(); ok && !ps.Valid() {
		return nil, ErrInvalidPaymentStatus
	}
	if name, ok := p.GuestName.Get(); ok && name == "" {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"reason": "guest_name must not be empty"})
	}
	email := strings.TrimSpace(p.GuestEmail.ValueOr(current.GuestEmail))
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidInput.WithDetails(map[string]any{"reason": "guest_email is not a valid address"})
		}
	}
	phone := strings.TrimSpace(p.GuestPhone.ValueOr(current.GuestPhone))
	if email == "" && phone == "" {
		return nil, ErrContactRequired
	}

	if err := s.store.Update(ctx, id, p.Columns()); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.store.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	if filter.Status != "" && !Status(filter.Status).Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if filter.PaymentStatus != "" && !PaymentStatus(filter.PaymentStatus).Valid() {
		return nil, 0, ErrInvalidPaymentStatus
	}
	return s.store.List(ctx, filter)
}

func (s *service) dispatch(ctx context.Context, ev sideeffect.Event, b *Booking) sideeffect.Result {
	if s.effects == nil {
		return sideeffect.Result{}
	}
	return s.effects.Dispatch(ctx, ev, Snapshot(b))
}

// Snapshot copies the fields side effects need.
func Snapshot(b *Booking) sideeffect.Snapshot {
	snap := sideeffect.Snapshot{
		BookingID:     b.ID,
		RoomTypeID:    b.RoomTypeID,
		RoomTypeName:  b.RoomTypeName,
		UnitID:        b.UnitID,
		LockID:        b.LockID,
		CheckIn:       b.CheckIn,
		CheckOut:      b.CheckOut,
		Guests:        b.Guests,
		GuestName:     b.GuestName,
		GuestEmail:    b.GuestEmail,
		GuestPhone:    b.GuestPhone,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
	}
	if b.UnitLabel != nil {
		snap.UnitLabel = *b.UnitLabel
	}
	return snap
}
