package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	UpsertOverrides(ctx context.Context, overrides []*Override) error
	ListOverrides(ctx context.Context, filter Filter) ([]*Override, error)
	DeleteOverride(ctx context.Context, roomTypeID string, date string) error

	UpsertDatePrices(ctx context.Context, prices []*DatePrice) error
	ListDatePrices(ctx context.Context, filter Filter) ([]*DatePrice, error)
	DeleteDatePrice(ctx context.Context, roomTypeID string, date string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func mapWriteErr(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return ErrRoomTypeNotFound
	}
	return fmt.Errorf("%s failed: %w", what, err)
}

// UpsertOverrides writes all rows in one transaction, keyed by (room type, date).
func (r *pgxRepository) UpsertOverrides(ctx context.Context, overrides []*Override) error {
	if len(overrides) == 0 {
		return nil
	}
	q := psql.Insert("public.availability_overrides").
		Columns("room_type_id", "date", "open_units", "available", "price", "min_stay")
	for _, o := range overrides {
		q = q.Values(o.RoomTypeID, o.Date, o.OpenUnits, o.Available, o.Price, o.MinStay)
	}
	query, args, err := q.Suffix(`ON CONFLICT (room_type_id, date) DO UPDATE SET
		open_units = EXCLUDED.open_units,
		available = EXCLUDED.available,
		price = EXCLUDED.price,
		min_stay = EXCLUDED.min_stay,
		updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert overrides query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return mapWriteErr(err, "upsert overrides")
	}
	return nil
}

func (r *pgxRepository) ListOverrides(ctx context.Context, filter Filter) ([]*Override, error) {
	query, args, err := psql.Select("room_type_id", "date", "open_units", "available", "price", "min_stay", "updated_at").
		From("public.availability_overrides").
		Where(squirrel.Eq{"room_type_id": filter.RoomTypeID}).
		Where(squirrel.GtOrEq{"date": filter.From}).
		Where(squirrel.LtOrEq{"date": filter.To}).
		OrderBy("date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list overrides query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list overrides failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Override, error) {
		var o Override
		err := row.Scan(&o.RoomTypeID, &o.Date, &o.OpenUnits, &o.Available, &o.Price, &o.MinStay, &o.UpdatedAt)
		return &o, err
	})
}

func (r *pgxRepository) DeleteOverride(ctx context.Context, roomTypeID string, date string) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM public.availability_overrides WHERE room_type_id = $1 AND date = $2::date`,
		roomTypeID, date)
	if err != nil {
		return fmt.Errorf("delete override failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) UpsertDatePrices(ctx context.Context, prices []*DatePrice) error {
	if len(prices) == 0 {
		return nil
	}
	q := psql.Insert("public.date_prices").Columns("room_type_id", "date", "price")
	for _, p := range prices {
		q = q.Values(p.RoomTypeID, p.Date, p.Price)
	}
	query, args, err := q.Suffix(`ON CONFLICT (room_type_id, date) DO UPDATE SET
		price = EXCLUDED.price,
		updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert date prices query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return mapWriteErr(err, "upsert date prices")
	}
	return nil
}

func (r *pgxRepository) ListDatePrices(ctx context.Context, filter Filter) ([]*DatePrice, error) {
	query, args, err := psql.Select("room_type_id", "date", "price", "updated_at").
		From("public.date_prices").
		Where(squirrel.Eq{"room_type_id": filter.RoomTypeID}).
		Where(squirrel.GtOrEq{"date": filter.From}).
		Where(squirrel.LtOrEq{"date": filter.To}).
		OrderBy("date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list date prices query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list date prices failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*DatePrice, error) {
		var p DatePrice
		err := row.Scan(&p.RoomTypeID, &p.Date, &p.Price, &p.UpdatedAt)
		return &p, err
	})
}

func (r *pgxRepository) DeleteDatePrice(ctx context.Context, roomTypeID string, date string) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM public.date_prices WHERE room_type_id = $1 AND date = $2::date`,
		roomTypeID, date)
	if err != nil {
		return fmt.Errorf("delete date price failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
