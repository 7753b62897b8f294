package http

import (
	"github.com/kystlys/stay-engine/internal/inventory"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
)

type AvailabilityQuery struct {
	From       string `form:"from" binding:"required"`
	To         string `form:"to" binding:"required"`
	RoomTypeID string `form:"room_type_id" binding:"omitempty,uuid"`
}

type DayResponse struct {
	Date      string `json:"date"`
	BaseUnits int    `json:"base_units"`
	Committed int    `json:"committed"`
	Remaining int    `json:"remaining"`
	Available bool   `json:"available"`
	Price     int64  `json:"price"`
	MinStay   int    `json:"min_stay"`
}

type RoomResponse struct {
	RoomTypeID string        `json:"room_type_id"`
	Name       string        `json:"name"`
	MaxGuests  int           `json:"max_guests"`
	Days       []DayResponse `json:"days"`
}

func NewRoomResponse(r inventory.RoomAvailability) RoomResponse {
	days := make([]DayResponse, len(r.Days))
	for i, d := range r.Days {
		days[i] = DayResponse{
			Date:      dates.Format(d.Date),
			BaseUnits: d.BaseUnits,
			Committed: d.Committed,
			Remaining: d.Remaining,
			Available: d.Available,
			Price:     d.Price,
			MinStay:   d.MinStay,
		}
	}
	return RoomResponse{
		RoomTypeID: r.RoomTypeID,
		Name:       r.Name,
		MaxGuests:  r.MaxGuests,
		Days:       days,
	}
}
