package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kystlys/stay-engine/internal/availability"
	"github.com/kystlys/stay-engine/internal/inventory"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/pkg/patch"
	"github.com/kystlys/stay-engine/internal/roomtype"
)

// memStore serialises transactions with one mutex, the way the advisory
// lock serialises reservations in Postgres. Writes are staged and only
// become visible when fn succeeds.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq       int
	roomTypes map[string]*roomtype.RoomType
	units     []*roomtype.Unit
	overrides []*availability.Override
	prices    []*availability.DatePrice
	bookings  map[string]*Booking
}

func newMemStore() *memStore {
	return &memStore{
		roomTypes: map[string]*roomtype.RoomType{},
		bookings:  map[string]*Booking{},
	}
}

func (m *memStore) addRoomType(rt *roomtype.RoomType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomTypes[rt.ID] = rt
}

func (m *memStore) addUnit(u *roomtype.Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = append(m.units, u)
}

func (m *memStore) committed() []*Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.Status.Committing() {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memTx{store: m, staged: map[string]*Booking{}}
	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range tx.staged {
		cp := *b
		m.bookings[id] = &cp
	}
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, f Filter) ([]*Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if f.Status != "" && string(b.Status) != f.Status {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) Update(ctx context.Context, id string, cols patch.Columns) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	for col, v := range cols {
		switch col {
		case "payment_status":
			b.PaymentStatus = v.(PaymentStatus)
		case "guest_name":
			b.GuestName = v.(string)
		case "guest_email":
			b.GuestEmail = v.(string)
		case "guest_phone":
			b.GuestPhone = v.(string)
		case "notes":
			b.Notes = v.(string)
		default:
			return fmt.Errorf("unexpected column %s", col)
		}
	}
	b.Version++
	return nil
}

type memTx struct {
	store  *memStore
	staged map[string]*Booking
}

func (t *memTx) LockRoomType(ctx context.Context, roomTypeID string) error { return nil }

func (t *memTx) Inventory() inventory.Source { return t }

func (t *memTx) Insert(ctx context.Context, b *Booking) error {
	t.store.mu.Lock()
	t.store.seq++
	b.ID = fmt.Sprintf("b-%03d", t.store.seq)
	t.store.mu.Unlock()

	// Mirrors the per-unit exclusion constraint.
	if b.UnitID != nil {
		for _, o := range t.occupancies() {
			if o.UnitID != nil && *o.UnitID == *b.UnitID && dates.Overlaps(o.CheckIn, o.CheckOut, b.CheckIn, b.CheckOut) {
				return ErrCapacityExhausted
			}
		}
	}
	b.Version = 1
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	t.staged[b.ID] = &cp
	return nil
}

func (t *memTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	if b, ok := t.staged[id]; ok {
		cp := *b
		return &cp, nil
	}
	return t.store.GetByID(ctx, id)
}

func (t *memTx) UpdateStatus(ctx context.Context, b *Booking) error {
	current, err := t.GetForUpdate(ctx, b.ID)
	if err != nil {
		return err
	}
	if current.Version != b.Version {
		return ErrConcurrentUpdate
	}
	b.Version++
	cp := *b
	t.staged[b.ID] = &cp
	return nil
}

func (t *memTx) occupancies() []inventory.Occupancy {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	all := map[string]*Booking{}
	for id, b := range t.store.bookings {
		all[id] = b
	}
	for id, b := range t.staged {
		all[id] = b
	}
	var out []inventory.Occupancy
	for _, b := range all {
		if b.Status.Committing() {
			out = append(out, inventory.Occupancy{
				BookingID: b.ID, RoomTypeID: b.RoomTypeID, UnitID: b.UnitID,
				CheckIn: b.CheckIn, CheckOut: b.CheckOut,
			})
		}
	}
	return out
}

func has(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (t *memTx) RoomTypes(ctx context.Context, ids []string) (map[string]*roomtype.RoomType, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := map[string]*roomtype.RoomType{}
	for id, rt := range t.store.roomTypes {
		if has(ids, id) {
			cp := *rt
			out[id] = &cp
		}
	}
	return out, nil
}

func (t *memTx) Units(ctx context.Context, ids []string) (map[string][]*roomtype.Unit, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := map[string][]*roomtype.Unit{}
	for _, u := range t.store.units {
		if u.IsActive && has(ids, u.RoomTypeID) {
			out[u.RoomTypeID] = append(out[u.RoomTypeID], u)
		}
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].Label < list[j].Label })
	}
	return out, nil
}

func (t *memTx) Overrides(ctx context.Context, ids []string, from, to time.Time) ([]*availability.Override, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var out []*availability.Override
	for _, o := range t.store.overrides {
		if has(ids, o.RoomTypeID) && dates.Contains(from, to, o.Date) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (t *memTx) DatePrices(ctx context.Context, ids []string, from, to time.Time) ([]*availability.DatePrice, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	var out []*availability.DatePrice
	for _, p := range t.store.prices {
		if has(ids, p.RoomTypeID) && dates.Contains(from, to, p.Date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) Occupancies(ctx context.Context, ids []string, from, to time.Time) ([]inventory.Occupancy, error) {
	var out []inventory.Occupancy
	for _, o := range t.occupancies() {
		if has(ids, o.RoomTypeID) && dates.Overlaps(o.CheckIn, o.CheckOut, from, to) {
			out = append(out, o)
		}
	}
	return out, nil
}
