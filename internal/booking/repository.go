package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kystlys/stay-engine/internal/db"
	"github.com/kystlys/stay-engine/internal/inventory"
	"github.com/kystlys/stay-engine/internal/pkg/patch"
)

// Store is the booking persistence boundary. Writes that depend on
// inventory run inside InTx.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, id string, cols patch.Columns) error
}

// Tx is one unit of work. Reads made through Inventory see the same
// snapshot the writes land in.
type Tx interface {
	// LockRoomType serialises reservations for a room type until the
	// transaction ends.
	LockRoomType(ctx context.Context, roomTypeID string) error
	Inventory() inventory.Source
	Insert(ctx context.Context, b *Booking) error
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, b *Booking) error
}

type pgxStore struct {
	pool *pgxpool.Pool
}

func NewPgxStore(pool *pgxpool.Pool) Store {
	return &pgxStore{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.room_type_id", "rt.name", "b.room_unit_id", "u.label", "u.lock_id",
	"b.check_in", "b.check_out", "b.guests", "b.guest_name", "b.guest_email", "b.guest_phone",
	"b.total_price", "b.status", "b.payment_status", "b.source", "b.notes", "b.version",
	"b.created_at", "b.confirmed_at", "b.updated_at",
}

func selectBookings() squirrel.SelectBuilder {
	return psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.room_types rt ON rt.id = b.room_type_id").
		LeftJoin("public.room_units u ON u.id = b.room_unit_id")
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.RoomTypeID, &b.RoomTypeName, &b.UnitID, &b.UnitLabel, &b.LockID,
		&b.CheckIn, &b.CheckOut, &b.Guests, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.TotalPrice, &b.Status, &b.PaymentStatus, &b.Source, &b.Notes, &b.Version,
		&b.CreatedAt, &b.ConfirmedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func getBooking(ctx context.Context, q db.Querier, id string, forUpdate bool) (*Booking, error) {
	sb := selectBookings().Where(squirrel.Eq{"b.id": id})
	if forUpdate {
		sb = sb.Suffix("FOR UPDATE OF b")
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (s *pgxStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgxTx{tx: tx})
	})
}

func (s *pgxStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	return getBooking(ctx, s.pool, id, false)
}

func (s *pgxStore) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b").
		Join("public.room_types rt ON rt.id = b.room_type_id").
		LeftJoin("public.room_units u ON u.id = b.room_unit_id")

	if filter.RoomTypeID != "" {
		query = query.Where(squirrel.Eq{"b.room_type_id": filter.RoomTypeID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	if filter.PaymentStatus != "" {
		query = query.Where(squirrel.Eq{"b.payment_status": filter.PaymentStatus})
	}
	// Half-open overlap with [StayFrom, StayTo).
	if filter.StayFrom != nil {
		query = query.Where(squirrel.Gt{"b.check_out": *filter.StayFrom})
	}
	if filter.StayTo != nil {
		query = query.Where(squirrel.Lt{"b.check_in": *filter.StayTo})
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"b.guest_name": like},
			squirrel.ILike{"b.guest_email": like},
			squirrel.ILike{"b.guest_phone": like},
		})
	}

	orderBy := "b.check_in"
	switch filter.SortBy {
	case "check_in", "check_out", "created_at", "total_price", "status":
		orderBy = "b." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder == "asc" || filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "b.id")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var result []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}
	return result, total, nil
}

func (s *pgxStore) Update(ctx context.Context, id string, cols patch.Columns) error {
	if len(cols) == 0 {
		return nil
	}
	query, args, err := psql.Update("public.bookings").
		SetMap(cols).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	ct, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) LockRoomType(ctx context.Context, roomTypeID string) error {
	return db.AdvisoryLock(ctx, t.tx, "booking.room_type", roomTypeID)
}

func (t *pgxTx) Inventory() inventory.Source {
	return inventory.NewPgxSource(t.tx)
}

func (t *pgxTx) Insert(ctx context.Context, b *Booking) error {
	query, args, err := psql.Insert("public.bookings").
		Columns("room_type_id", "room_unit_id", "check_in", "check_out", "guests",
			"guest_name", "guest_email", "guest_phone", "total_price",
			"status", "payment_status", "source", "notes").
		Values(b.RoomTypeID, b.UnitID, b.CheckIn, b.CheckOut, b.Guests,
			b.GuestName, b.GuestEmail, b.GuestPhone, b.TotalPrice,
			b.Status, b.PaymentStatus, b.Source, b.Notes).
		Suffix("RETURNING id, version, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	err = t.tx.QueryRow(ctx, query, args...).Scan(&b.ID, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.ExclusionViolation:
				// Another booking holds the unit for an overlapping night.
				return ErrCapacityExhausted
			case pgerrcode.ForeignKeyViolation:
				return ErrRoomTypeNotFound
			}
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (t *pgxTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return getBooking(ctx, t.tx, id, true)
}

func (t *pgxTx) UpdateStatus(ctx context.Context, b *Booking) error {
	const query = `
		UPDATE public.bookings
		SET status = $2, confirmed_at = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $4
		RETURNING version, updated_at`
	err := t.tx.QueryRow(ctx, query, b.ID, b.Status, b.ConfirmedAt, b.Version).Scan(&b.Version, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("update booking status failed: %w", err)
	}
	return nil
}
