package inventory

import (
	"time"

	"github.com/kystlys/stay-engine/internal/availability"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/roomtype"
)

// calendar is everything needed to resolve capacity and price for a set of
// room types over [from, to), loaded up front so per-night resolution never
// goes back to the store.
type calendar struct {
	from, to    time.Time
	roomTypes   map[string]*roomtype.RoomType
	units       map[string][]*roomtype.Unit
	overrides   map[string]*availability.Override
	prices      map[string]int64
	occupancies map[string][]Occupancy
}

func cellKey(roomTypeID string, date time.Time) string {
	return roomTypeID + "/" + dates.Format(date)
}

func newCalendar(from, to time.Time) *calendar {
	return &calendar{
		from:        dates.Day(from),
		to:          dates.Day(to),
		roomTypes:   map[string]*roomtype.RoomType{},
		units:       map[string][]*roomtype.Unit{},
		overrides:   map[string]*availability.Override{},
		prices:      map[string]int64{},
		occupancies: map[string][]Occupancy{},
	}
}

func (c *calendar) addOverrides(list []*availability.Override) {
	for _, o := range list {
		c.overrides[cellKey(o.RoomTypeID, o.Date)] = o
	}
}

func (c *calendar) addPrices(list []*availability.DatePrice) {
	for _, p := range list {
		c.prices[cellKey(p.RoomTypeID, p.Date)] = p.Price
	}
}

func (c *calendar) addOccupancies(list []Occupancy) {
	for _, o := range list {
		c.occupancies[o.RoomTypeID] = append(c.occupancies[o.RoomTypeID], o)
	}
}

func (c *calendar) inRange(date time.Time) bool {
	return dates.Contains(c.from, c.to, date)
}

// capacity applies the per-date formula. Unknown room types and dates
// outside the loaded range resolve to zero remaining.
func (c *calendar) capacity(roomTypeID string, date time.Time) Capacity {
	rt, ok := c.roomTypes[roomTypeID]
	if !ok || !c.inRange(date) {
		return Capacity{}
	}
	date = dates.Day(date)

	base := rt.ConfiguredUnits()
	ov := c.overrides[cellKey(roomTypeID, date)]
	if ov != nil && ov.OpenUnits != nil {
		base = *ov.OpenUnits
	}

	committed := c.committed(roomTypeID, date)
	capa := Capacity{
		BaseUnits: base,
		Committed: committed,
		Remaining: max(0, base-committed),
	}
	if ov != nil && !ov.Available && ov.OpenUnits == nil {
		capa.Remaining = 0
		capa.Closed = true
	}
	return capa
}

// committed counts occupancy on one night. With units defined, bookings on
// the same unit count once and unassigned bookings count individually.
func (c *calendar) committed(roomTypeID string, date time.Time) int {
	occs := c.occupancies[roomTypeID]
	if len(c.units[roomTypeID]) == 0 {
		n := 0
		for _, o := range occs {
			if dates.Contains(o.CheckIn, o.CheckOut, date) {
				n++
			}
		}
		return n
	}

	seen := make(map[string]struct{})
	unassigned := 0
	for _, o := range occs {
		if !dates.Contains(o.CheckIn, o.CheckOut, date) {
			continue
		}
		if o.UnitID == nil {
			unassigned++
			continue
		}
		seen[*o.UnitID] = struct{}{}
	}
	return len(seen) + unassigned
}

// price walks the waterfall: date price, override price, base price.
func (c *calendar) price(roomTypeID string, date time.Time) int64 {
	rt, ok := c.roomTypes[roomTypeID]
	if !ok {
		return 0
	}
	if p, ok := c.prices[cellKey(roomTypeID, date)]; ok {
		return p
	}
	if ov := c.overrides[cellKey(roomTypeID, date)]; ov != nil && ov.Price != nil {
		return *ov.Price
	}
	return rt.BasePrice
}

func (c *calendar) minStay(roomTypeID string, date time.Time) int {
	if ov := c.overrides[cellKey(roomTypeID, date)]; ov != nil && ov.MinStay > 1 {
		return ov.MinStay
	}
	return 1
}

// freeUnit returns the first unit in label order with no committing booking
// overlapping [checkIn, checkOut).
func (c *calendar) freeUnit(roomTypeID string, checkIn, checkOut time.Time) *roomtype.Unit {
	for _, u := range c.units[roomTypeID] {
		busy := false
		for _, o := range c.occupancies[roomTypeID] {
			if o.UnitID != nil && *o.UnitID == u.ID && dates.Overlaps(o.CheckIn, o.CheckOut, checkIn, checkOut) {
				busy = true
				break
			}
		}
		if !busy {
			return u
		}
	}
	return nil
}
