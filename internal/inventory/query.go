package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/dates"
)

// Query selects the calendar to render. RoomTypeID empty means every
// active room type. To is exclusive.
type Query struct {
	From       time.Time
	To         time.Time
	RoomTypeID string
}

// DayAvailability is one cell of the availability calendar.
type DayAvailability struct {
	Date      time.Time
	BaseUnits int
	Committed int
	Remaining int
	Available bool
	Price     int64
	MinStay   int
}

type RoomAvailability struct {
	RoomTypeID string
	Name       string
	MaxGuests  int
	Days       []DayAvailability
}

// QueryService renders the availability calendar for guests and staff.
type QueryService struct {
	resolver *Resolver
}

// NewQueryService needs a Source that is safe for concurrent use, such as
// one built over a pool.
func NewQueryService(src Source) *QueryService {
	return &QueryService{resolver: newParallelResolver(src)}
}

func (s *QueryService) Availability(ctx context.Context, q Query) ([]RoomAvailability, error) {
	from, to := dates.Day(q.From), dates.Day(q.To)
	if !to.After(from) {
		return nil, ErrInvalidRange
	}
	if dates.NightCount(from, to) > MaxQueryNights {
		return nil, ErrRangeTooLong
	}

	var ids []string
	if q.RoomTypeID != "" {
		ids = []string{q.RoomTypeID}
	}
	cal, caps, err := s.resolver.batch(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}
	rts := cal.roomTypes

	out := make([]RoomAvailability, 0, len(rts))
	nights := dates.Nights(from, to)
	for _, rt := range rts {
		ra := RoomAvailability{RoomTypeID: rt.ID, Name: rt.Name, MaxGuests: rt.MaxGuests}
		for _, night := range nights {
			c := caps.Get(rt.ID, night)
			ra.Days = append(ra.Days, DayAvailability{
				Date:      night,
				BaseUnits: c.BaseUnits,
				Committed: c.Committed,
				Remaining: c.Remaining,
				Available: c.Remaining > 0 && rt.IsActive,
				Price:     cal.price(rt.ID, night),
				MinStay:   cal.minStay(rt.ID, night),
			})
		}
		out = append(out, ra)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].RoomTypeID < out[j].RoomTypeID
	})
	return out, nil
}
