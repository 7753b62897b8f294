package http

import (
	"time"

	"github.com/kystlys/stay-engine/internal/booking"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/pkg/patch"
	"github.com/kystlys/stay-engine/internal/pkg/request"
	"github.com/kystlys/stay-engine/internal/sideeffect"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	RoomTypeID    string `form:"room_type_id" binding:"omitempty,uuid"`
	Status        string `form:"status" binding:"omitempty,oneof=pending confirmed checked_out cancelled"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=unpaid paid refunded"`
	StayFrom      string `form:"stay_from"`
	StayTo        string `form:"stay_to"`
	Q             string `form:"q" binding:"max=200"`
	SortBy        string `form:"sort_by" binding:"omitempty,oneof=check_in check_out created_at total_price status"`
}

// Filter converts the query into a repository filter.
func (r *ListBookingsRequest) Filter() (booking.Filter, error) {
	f := booking.Filter{
		RoomTypeID:    r.RoomTypeID,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		Query:         r.Q,
		Page:          r.Page,
		PageSize:      r.PageSize,
		SortBy:        r.SortBy,
		SortOrder:     r.SortOrder,
	}
	if r.StayFrom != "" {
		d, err := dates.ParseDay(r.StayFrom)
		if err != nil {
			return f, err
		}
		f.StayFrom = &d
	}
	if r.StayTo != "" {
		d, err := dates.ParseDay(r.StayTo)
		if err != nil {
			return f, err
		}
		f.StayTo = &d
	}
	if f.StayFrom != nil && f.StayTo != nil && !f.StayTo.After(*f.StayFrom) {
		return f, booking.ErrInvalidRange
	}
	return f, nil
}

type UnitTag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type BookingResponse struct {
	ID            string     `json:"id"`
	RoomTypeID    string     `json:"room_type_id"`
	RoomTypeName  string     `json:"room_type_name"`
	Unit          *UnitTag   `json:"unit"`
	CheckIn       string     `json:"check_in"`
	CheckOut      string     `json:"check_out"`
	Nights        int        `json:"nights"`
	Guests        int        `json:"guests"`
	GuestName     string     `json:"guest_name"`
	GuestEmail    string     `json:"guest_email,omitempty"`
	GuestPhone    string     `json:"guest_phone,omitempty"`
	TotalPrice    int64      `json:"total_price"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	Source        string     `json:"source"`
	Notes         string     `json:"notes,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:            b.ID,
		RoomTypeID:    b.RoomTypeID,
		RoomTypeName:  b.RoomTypeName,
		CheckIn:       dates.Format(b.CheckIn),
		CheckOut:      dates.Format(b.CheckOut),
		Nights:        b.Nights(),
		Guests:        b.Guests,
		GuestName:     b.GuestName,
		GuestEmail:    b.GuestEmail,
		GuestPhone:    b.GuestPhone,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Source:        b.Source,
		Notes:         b.Notes,
		Version:       b.Version,
		CreatedAt:     b.CreatedAt,
		ConfirmedAt:   b.ConfirmedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if b.UnitID != nil {
		tag := &UnitTag{ID: *b.UnitID}
		if b.UnitLabel != nil {
			tag.Label = *b.UnitLabel
		}
		resp.Unit = tag
	}
	return resp
}

type CreateBookingBody struct {
	RoomTypeID string `json:"room_type_id" binding:"required,uuid"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Guests     int    `json:"guests" binding:"required,min=1"`
	GuestName  string `json:"guest_name" binding:"required"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Source     string `json:"source"`
	Notes      string `json:"notes"`
}

type CreateBookingResponse struct {
	Booking     BookingResponse   `json:"booking"`
	SideEffects sideeffect.Result `json:"side_effects"`
	Replayed    bool              `json:"replayed,omitempty"`
}

type UpdateBookingBody struct {
	PaymentStatus patch.Field[string] `json:"payment_status"`
	GuestName     patch.Field[string] `json:"guest_name"`
	GuestEmail    patch.Field[string] `json:"guest_email"`
	GuestPhone    patch.Field[string] `json:"guest_phone"`
	Notes         patch.Field[string] `json:"notes"`
}

func (b UpdateBookingBody) Patch() booking.Patch {
	p := booking.Patch{
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		GuestPhone: b.GuestPhone,
		Notes:      b.Notes,
	}
	if v, ok := b.PaymentStatus.Get(); ok {
		p.PaymentStatus = patch.Set(booking.PaymentStatus(v))
	}
	return p
}

type TransitionBody struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed checked_out cancelled"`
}

type TransitionResponse struct {
	Booking     BookingResponse   `json:"booking"`
	Changed     bool              `json:"changed"`
	SideEffects sideeffect.Result `json:"side_effects"`
}
