package inventory

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/roomtype"
)

// Resolver computes capacity, prices and unit assignments from a Source.
// Build one over a transaction to evaluate inside the same atomic step as
// the write that depends on it.
type Resolver struct {
	src      Source
	parallel bool
}

// NewResolver reads sequentially, which keeps it usable over a single pgx.Tx.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// newParallelResolver loads the per-range inputs concurrently. src must be
// safe for concurrent use.
func newParallelResolver(src Source) *Resolver {
	return &Resolver{src: src, parallel: true}
}

// load reads every input for [from, to). A nil roomTypeIDs loads every
// active room type.
func (r *Resolver) load(ctx context.Context, roomTypeIDs []string, from, to time.Time) (*calendar, error) {
	cal := newCalendar(from, to)

	rts, err := r.src.RoomTypes(ctx, roomTypeIDs)
	if err != nil {
		return nil, err
	}
	cal.roomTypes = rts
	if len(rts) == 0 {
		return cal, nil
	}
	ids := make([]string, 0, len(rts))
	for id := range rts {
		ids = append(ids, id)
	}

	steps := []func(ctx context.Context) error{
		func(ctx context.Context) error {
			units, err := r.src.Units(ctx, ids)
			cal.units = units
			return err
		},
		func(ctx context.Context) error {
			overrides, err := r.src.Overrides(ctx, ids, cal.from, cal.to)
			if err == nil {
				cal.addOverrides(overrides)
			}
			return err
		},
		func(ctx context.Context) error {
			prices, err := r.src.DatePrices(ctx, ids, cal.from, cal.to)
			if err == nil {
				cal.addPrices(prices)
			}
			return err
		},
		func(ctx context.Context) error {
			occs, err := r.src.Occupancies(ctx, ids, cal.from, cal.to)
			if err == nil {
				cal.addOccupancies(occs)
			}
			return err
		},
	}

	if !r.parallel {
		for _, step := range steps {
			if err := step(ctx); err != nil {
				return nil, err
			}
		}
		return cal, nil
	}

	// Each step fills a different calendar field.
	g, gctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		g.Go(func() error { return step(gctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cal, nil
}

// RemainingCapacity resolves one room type on one date.
func (r *Resolver) RemainingCapacity(ctx context.Context, roomTypeID string, date time.Time) (Capacity, error) {
	day := dates.Day(date)
	cal, err := r.load(ctx, []string{roomTypeID}, day, dates.AddDays(day, 1))
	if err != nil {
		return Capacity{}, err
	}
	return cal.capacity(roomTypeID, day), nil
}

// CapacityRange resolves every room type on every night of [from, to) from
// a single occupancy read.
func (r *Resolver) CapacityRange(ctx context.Context, roomTypeIDs []string, from, to time.Time) (CapacityMap, error) {
	if len(roomTypeIDs) == 0 || !dates.Day(to).After(dates.Day(from)) {
		return CapacityMap{}, nil
	}
	_, caps, err := r.batch(ctx, roomTypeIDs, from, to)
	return caps, err
}

// batch loads [from, to) once and resolves capacity for every loaded room
// type and night. The calendar is returned for price and min-stay lookups.
func (r *Resolver) batch(ctx context.Context, roomTypeIDs []string, from, to time.Time) (*calendar, CapacityMap, error) {
	cal, err := r.load(ctx, roomTypeIDs, from, to)
	if err != nil {
		return nil, nil, err
	}
	caps := CapacityMap{}
	for id := range cal.roomTypes {
		for _, night := range dates.Nights(from, to) {
			caps.set(id, night, cal.capacity(id, night))
		}
	}
	return cal, caps, nil
}

// NightlyPrice returns 0 for an unknown room type; callers reject those.
func (r *Resolver) NightlyPrice(ctx context.Context, roomTypeID string, date time.Time) (int64, error) {
	day := dates.Day(date)
	cal, err := r.load(ctx, []string{roomTypeID}, day, dates.AddDays(day, 1))
	if err != nil {
		return 0, err
	}
	return cal.price(roomTypeID, day), nil
}

// StayPrice sums the nightly price of every night in [checkIn, checkOut).
func (r *Resolver) StayPrice(ctx context.Context, roomTypeID string, checkIn, checkOut time.Time) (Quote, error) {
	cal, err := r.load(ctx, []string{roomTypeID}, checkIn, checkOut)
	if err != nil {
		return Quote{}, err
	}
	return quote(cal, roomTypeID, checkIn, checkOut), nil
}

func quote(cal *calendar, roomTypeID string, checkIn, checkOut time.Time) Quote {
	var q Quote
	for _, night := range dates.Nights(checkIn, checkOut) {
		p := cal.price(roomTypeID, night)
		q.Total += p
		q.Nights = append(q.Nights, NightPrice{Date: night, Price: p})
	}
	return q
}

// AssignUnit picks the first free unit in label order. With no units defined
// it reports UnitsDefined=false and the caller must not block on it.
func (r *Resolver) AssignUnit(ctx context.Context, roomTypeID string, checkIn, checkOut time.Time) (Assignment, error) {
	cal, err := r.load(ctx, []string{roomTypeID}, checkIn, checkOut)
	if err != nil {
		return Assignment{}, err
	}
	return assign(cal, roomTypeID, checkIn, checkOut), nil
}

func assign(cal *calendar, roomTypeID string, checkIn, checkOut time.Time) Assignment {
	if len(cal.units[roomTypeID]) == 0 {
		return Assignment{}
	}
	a := Assignment{UnitsDefined: true}
	if u := cal.freeUnit(roomTypeID, checkIn, checkOut); u != nil {
		id := u.ID
		a.UnitID = &id
		a.UnitLabel = u.Label
		a.LockID = u.LockID
	}
	return a
}

// MinStay is the minimum nights required for a stay arriving on checkIn.
func (r *Resolver) MinStay(ctx context.Context, roomTypeID string, checkIn time.Time) (int, error) {
	day := dates.Day(checkIn)
	cal, err := r.load(ctx, []string{roomTypeID}, day, dates.AddDays(day, 1))
	if err != nil {
		return 0, err
	}
	return cal.minStay(roomTypeID, day), nil
}

// StayCheck is everything a reservation needs to know about a stay,
// evaluated from one load.
type StayCheck struct {
	RoomType   *roomtype.RoomType // nil when the room type does not exist
	Nights     []Capacity
	SoldOut    []time.Time // nights with zero remaining
	MinStay    int
	Quote      Quote
	Assignment Assignment
}

// CheckStay resolves capacity, min stay, price and unit assignment for a
// stay in one pass over the store.
func (r *Resolver) CheckStay(ctx context.Context, roomTypeID string, checkIn, checkOut time.Time) (StayCheck, error) {
	cal, err := r.load(ctx, []string{roomTypeID}, checkIn, checkOut)
	if err != nil {
		return StayCheck{}, err
	}
	sc := StayCheck{
		RoomType:   cal.roomTypes[roomTypeID],
		MinStay:    cal.minStay(roomTypeID, dates.Day(checkIn)),
		Quote:      quote(cal, roomTypeID, checkIn, checkOut),
		Assignment: assign(cal, roomTypeID, checkIn, checkOut),
	}
	for _, night := range dates.Nights(checkIn, checkOut) {
		c := cal.capacity(roomTypeID, night)
		sc.Nights = append(sc.Nights, c)
		if c.Remaining == 0 {
			sc.SoldOut = append(sc.SoldOut, night)
		}
	}
	return sc, nil
}
