// Package inventory answers "how many rooms are left and what do they cost"
// for a room type on a date. It only reads bookings, overrides and prices;
// writes belong to the booking, availability and roomtype packages.
package inventory

import (
	"net/http"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/apperror"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
)

var (
	ErrInvalidRange = apperror.New(http.StatusBadRequest, "to must be after from")
	ErrRangeTooLong = apperror.New(http.StatusBadRequest, "availability range is too long")
)

// MaxQueryNights bounds one availability query.
const MaxQueryNights = 366

// CommittingStatuses are the booking statuses that consume capacity.
var CommittingStatuses = []string{"pending", "confirmed"}

// Capacity is the resolved inventory of one room type on one date.
type Capacity struct {
	BaseUnits int
	Committed int
	Remaining int
	Closed    bool // an override marked the date unavailable without a unit count
}

// Occupancy is the part of a committing booking that inventory cares about.
type Occupancy struct {
	BookingID  string
	RoomTypeID string
	UnitID     *string
	CheckIn    time.Time
	CheckOut   time.Time
}

// CapacityMap holds resolved capacity keyed by room type and date.
type CapacityMap map[string]map[string]Capacity

// Get returns the capacity for a room type on a date. Missing entries
// resolve to zero remaining.
func (m CapacityMap) Get(roomTypeID string, date time.Time) Capacity {
	byDate, ok := m[roomTypeID]
	if !ok {
		return Capacity{}
	}
	return byDate[dates.Format(date)]
}

func (m CapacityMap) set(roomTypeID string, date time.Time, c Capacity) {
	byDate, ok := m[roomTypeID]
	if !ok {
		byDate = make(map[string]Capacity)
		m[roomTypeID] = byDate
	}
	byDate[dates.Format(date)] = c
}

// NightPrice is one night of a stay quote.
type NightPrice struct {
	Date  time.Time
	Price int64
}

// Quote is the total price of a stay and its per-night breakdown.
type Quote struct {
	Total  int64
	Nights []NightPrice
}

// Assignment is the result of picking a physical unit for a stay.
// UnitsDefined false means the room type is tracked at type level only
// and Unit is always nil.
type Assignment struct {
	UnitsDefined bool
	UnitID       *string
	UnitLabel    string
	LockID       *string
}
