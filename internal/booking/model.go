package booking

import (
	"net/http"
	"strings"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/apperror"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/pkg/patch"
)

var (
	ErrNotFound             = apperror.New(http.StatusNotFound, "booking not found")
	ErrInvalidInput         = apperror.New(http.StatusBadRequest, "invalid input parameters")
	ErrInvalidRange         = apperror.New(http.StatusBadRequest, "check_out must be after check_in")
	ErrStayTooLong          = apperror.New(http.StatusBadRequest, "stay is too long")
	ErrContactRequired      = apperror.New(http.StatusBadRequest, "guest email or phone is required")
	ErrRoomTypeNotFound     = apperror.New(http.StatusBadRequest, "room type does not exist or is not bookable")
	ErrTooManyGuests        = apperror.New(http.StatusBadRequest, "guest count exceeds room capacity")
	ErrMinStay              = apperror.New(http.StatusBadRequest, "stay is shorter than the minimum stay")
	ErrInvalidStatus        = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrInvalidPaymentStatus = apperror.New(http.StatusBadRequest, "invalid payment status")
	ErrEmptyPatch           = apperror.New(http.StatusBadRequest, "no fields to update")
	ErrIdempotencyMismatch  = apperror.New(http.StatusConflict, "idempotency key was used for a different request")
	ErrIdempotencyInFlight  = apperror.New(http.StatusConflict, "a request with this idempotency key is in progress")

	ErrCapacityExhausted = apperror.NewKind(http.StatusConflict, apperror.KindCapacityExhausted,
		"no availability for the requested dates")
	ErrIllegalTransition = apperror.NewKind(http.StatusConflict, apperror.KindIllegalTransition,
		"booking cannot move to the requested status")
	ErrConcurrentUpdate = apperror.NewKind(http.StatusConflict, apperror.KindConflict,
		"booking was changed by another request, retry")
)

// MaxNights bounds a single reservation.
const MaxNights = 60

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedOut, StatusCancelled:
		return true
	}
	return false
}

// Committing statuses consume inventory.
func (s Status) Committing() bool {
	return s == StatusPending || s == StatusConfirmed
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedOut, StatusCancelled},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Staying in the same status is not an edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentUnpaid || p == PaymentPaid || p == PaymentRefunded
}

type Booking struct {
	ID            string
	RoomTypeID    string
	RoomTypeName  string
	UnitID        *string
	UnitLabel     *string
	LockID        *string
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	GuestName     string
	GuestEmail    string
	GuestPhone    string
	TotalPrice    int64
	Status        Status
	PaymentStatus PaymentStatus
	Source        string
	Notes         string
	Version       int
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	UpdatedAt     time.Time
}

func (b *Booking) Nights() int {
	return dates.NightCount(b.CheckIn, b.CheckOut)
}

type Filter struct {
	RoomTypeID    string
	Status        string
	PaymentStatus string
	StayFrom      *time.Time // stays that end after this day
	StayTo        *time.Time // stays that start before this day
	Query         string     // guest name, email or phone
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Patch is the staff-editable surface of a booking. Status is deliberately
// absent; it only changes through Transition.
type Patch struct {
	PaymentStatus patch.Field[PaymentStatus] `json:"payment_status"`
	GuestName     patch.Field[string]        `json:"guest_name"`
	GuestEmail    patch.Field[string]        `json:"guest_email"`
	GuestPhone    patch.Field[string]        `json:"guest_phone"`
	Notes         patch.Field[string]        `json:"notes"`
}

func (p Patch) Empty() bool {
	return !p.PaymentStatus.IsSet() && !p.GuestName.IsSet() && !p.GuestEmail.IsSet() &&
		!p.GuestPhone.IsSet() && !p.Notes.IsSet()
}

// Normalized trims the guest contact fields that are set.
func (p Patch) Normalized() Patch {
	trim := func(f patch.Field[string]) patch.Field[string] {
		if v, ok := f.Get(); ok {
			return patch.Set(strings.TrimSpace(v))
		}
		return f
	}
	p.GuestName = trim(p.GuestName)
	p.GuestEmail = trim(p.GuestEmail)
	p.GuestPhone = trim(p.GuestPhone)
	return p
}

// Columns translates the patch into a column set for the repository.
func (p Patch) Columns() patch.Columns {
	cols := patch.Columns{}
	patch.Add(cols, "payment_status", p.PaymentStatus)
	patch.Add(cols, "guest_name", p.GuestName)
	patch.Add(cols, "guest_email", p.GuestEmail)
	patch.Add(cols, "guest_phone", p.GuestPhone)
	patch.Add(cols, "notes", p.Notes)
	return cols
}
