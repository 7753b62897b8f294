package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/kystlys/stay-engine/internal/availability"
	"github.com/kystlys/stay-engine/internal/db"
	"github.com/kystlys/stay-engine/internal/roomtype"
)

// Source is the read side inventory resolves against. Range arguments are
// half-open: [from, to).
type Source interface {
	// RoomTypes returns the requested room types keyed by id. An empty ids
	// slice returns every active room type.
	RoomTypes(ctx context.Context, ids []string) (map[string]*roomtype.RoomType, error)
	// Units returns active units per room type ordered by label, then id.
	Units(ctx context.Context, roomTypeIDs []string) (map[string][]*roomtype.Unit, error)
	Overrides(ctx context.Context, roomTypeIDs []string, from, to time.Time) ([]*availability.Override, error)
	DatePrices(ctx context.Context, roomTypeIDs []string, from, to time.Time) ([]*availability.DatePrice, error)
	// Occupancies returns every committing booking that overlaps [from, to).
	Occupancies(ctx context.Context, roomTypeIDs []string, from, to time.Time) ([]Occupancy, error)
}

type pgxSource struct {
	q db.Querier
}

// NewPgxSource reads from a pool or from an open transaction.
func NewPgxSource(q db.Querier) Source {
	return &pgxSource{q: q}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (s *pgxSource) RoomTypes(ctx context.Context, ids []string) (map[string]*roomtype.RoomType, error) {
	q := psql.Select("id", "name", "description", "max_guests", "base_price", "unit_count", "is_active", "created_at", "updated_at").
		From("public.room_types")
	if len(ids) > 0 {
		q = q.Where(squirrel.Eq{"id": ids})
	} else {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	query, args, err := q.OrderBy("name", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build room types query failed: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load room types failed: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*roomtype.RoomType, error) {
		var rt roomtype.RoomType
		err := row.Scan(&rt.ID, &rt.Name, &rt.Description, &rt.MaxGuests, &rt.BasePrice,
			&rt.UnitCount, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt)
		return &rt, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan room types failed: %w", err)
	}

	out := make(map[string]*roomtype.RoomType, len(list))
	for _, rt := range list {
		out[rt.ID] = rt
	}
	return out, nil
}

func (s *pgxSource) Units(ctx context.Context, roomTypeIDs []string) (map[string][]*roomtype.Unit, error) {
	query, args, err := psql.Select("id", "room_type_id", "label", "lock_id", "is_active", "created_at").
		From("public.room_units").
		Where(squirrel.Eq{"room_type_id": roomTypeIDs, "is_active": true}).
		OrderBy("room_type_id", "label", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build units query failed: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load units failed: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*roomtype.Unit, error) {
		var u roomtype.Unit
		err := row.Scan(&u.ID, &u.RoomTypeID, &u.Label, &u.LockID, &u.IsActive, &u.CreatedAt)
		return &u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan units failed: %w", err)
	}

	out := make(map[string][]*roomtype.Unit)
	for _, u := range list {
		out[u.RoomTypeID] = append(out[u.RoomTypeID], u)
	}
	return out, nil
}

func (s *pgxSource) Overrides(ctx context.Context, roomTypeIDs []string, from, to time.Time) ([]*availability.Override, error) {
	query, args, err := psql.Select("room_type_id", "date", "open_units", "available", "price", "min_stay", "updated_at").
		From("public.availability_overrides").
		Where(squirrel.Eq{"room_type_id": roomTypeIDs}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Lt{"date": to}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overrides query failed: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load overrides failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*availability.Override, error) {
		var o availability.Override
		err := row.Scan(&o.RoomTypeID, &o.Date, &o.OpenUnits, &o.Available, &o.Price, &o.MinStay, &o.UpdatedAt)
		return &o, err
	})
}

func (s *pgxSource) DatePrices(ctx context.Context, roomTypeIDs []string, from, to time.Time) ([]*availability.DatePrice, error) {
	query, args, err := psql.Select("room_type_id", "date", "price", "updated_at").
		From("public.date_prices").
		Where(squirrel.Eq{"room_type_id": roomTypeIDs}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Lt{"date": to}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build date prices query failed: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load date prices failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*availability.DatePrice, error) {
		var p availability.DatePrice
		err := row.Scan(&p.RoomTypeID, &p.Date, &p.Price, &p.UpdatedAt)
		return &p, err
	})
}

// Occupancies issues one query over the whole range instead of one per night.
func (s *pgxSource) Occupancies(ctx context.Context, roomTypeIDs []string, from, to time.Time) ([]Occupancy, error) {
	query, args, err := psql.Select("id", "room_type_id", "room_unit_id", "check_in", "check_out").
		From("public.bookings").
		Where(squirrel.Eq{"room_type_id": roomTypeIDs, "status": CommittingStatuses}).
		Where(squirrel.Lt{"check_in": to}).
		Where(squirrel.Gt{"check_out": from}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build occupancies query failed: %w", err)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load occupancies failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Occupancy, error) {
		var o Occupancy
		err := row.Scan(&o.BookingID, &o.RoomTypeID, &o.UnitID, &o.CheckIn, &o.CheckOut)
		return o, err
	})
}
