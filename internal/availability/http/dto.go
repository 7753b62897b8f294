package http

import (
	"time"

	"github.com/kystlys/stay-engine/internal/availability"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
)

type OverrideResponse struct {
	RoomTypeID string    `json:"room_type_id"`
	Date       string    `json:"date"`
	OpenUnits  *int      `json:"open_units"`
	Available  bool      `json:"available"`
	Price      *int64    `json:"price"`
	MinStay    int       `json:"min_stay"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

func NewOverrideResponse(o *availability.Override) OverrideResponse {
	return OverrideResponse{
		RoomTypeID: o.RoomTypeID,
		Date:       dates.Format(o.Date),
		OpenUnits:  o.OpenUnits,
		Available:  o.Available,
		Price:      o.Price,
		MinStay:    o.MinStay,
		UpdatedAt:  o.UpdatedAt,
	}
}

type DatePriceResponse struct {
	RoomTypeID string    `json:"room_type_id"`
	Date       string    `json:"date"`
	Price      int64     `json:"price"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

func NewDatePriceResponse(p *availability.DatePrice) DatePriceResponse {
	return DatePriceResponse{
		RoomTypeID: p.RoomTypeID,
		Date:       dates.Format(p.Date),
		Price:      p.Price,
		UpdatedAt:  p.UpdatedAt,
	}
}

// RangeQuery binds ?from=&to= for listing endpoints.
type RangeQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// UpsertOverrideBody applies one override to every date from..to inclusive.
// A single date is expressed with from == to.
type UpsertOverrideBody struct {
	From      string `json:"from" binding:"required"`
	To        string `json:"to" binding:"required"`
	OpenUnits *int   `json:"open_units" binding:"omitempty,min=0"`
	Available *bool  `json:"available"`
	Price     *int64 `json:"price" binding:"omitempty,min=0"`
	MinStay   int    `json:"min_stay" binding:"omitempty,min=1"`
}

type UpsertPriceBody struct {
	From  string `json:"from" binding:"required"`
	To    string `json:"to" binding:"required"`
	Price int64  `json:"price" binding:"min=0"`
}

type dateURI struct {
	ID   string `uri:"id" binding:"required,uuid"`
	Date string `uri:"date" binding:"required"`
}
