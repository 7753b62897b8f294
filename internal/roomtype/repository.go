package roomtype

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kystlys/stay-engine/internal/pkg/patch"
)

type Repository interface {
	Create(ctx context.Context, rt *RoomType) error
	GetByID(ctx context.Context, id string) (*RoomType, error)
	List(ctx context.Context, filter Filter) ([]*RoomType, int, error)
	Update(ctx context.Context, id string, cols patch.Columns) error
	SetPhoto(ctx context.Context, id string, photoPath, thumbPath string) error
	Delete(ctx context.Context, id string) error

	CreateUnit(ctx context.Context, u *Unit) error
	GetUnit(ctx context.Context, id string) (*Unit, error)
	ListUnits(ctx context.Context, roomTypeID string) ([]*Unit, error)
	UpdateUnit(ctx context.Context, id string, cols patch.Columns) error
	DeleteUnit(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var roomTypeColumns = []string{
	"id", "name", "description", "max_guests", "base_price", "unit_count",
	"is_active", "photo_path", "thumb_path", "created_at", "updated_at",
}

func scanRoomType(row pgx.Row, extra ...any) (*RoomType, error) {
	var rt RoomType
	dest := []any{
		&rt.ID, &rt.Name, &rt.Description, &rt.MaxGuests, &rt.BasePrice, &rt.UnitCount,
		&rt.IsActive, &rt.PhotoPath, &rt.ThumbPath, &rt.CreatedAt, &rt.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *pgxRepository) Create(ctx context.Context, rt *RoomType) error {
	query, args, err := psql.Insert("public.room_types").
		Columns("name", "description", "max_guests", "base_price", "unit_count", "is_active").
		Values(rt.Name, rt.Description, rt.MaxGuests, rt.BasePrice, rt.UnitCount, rt.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create room type query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return fmt.Errorf("create room type failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*RoomType, error) {
	query, args, err := psql.Select(roomTypeColumns...).
		From("public.room_types").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get room type query failed: %w", err)
	}

	rt, err := scanRoomType(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get room type failed: %w", err)
	}
	return rt, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*RoomType, int, error) {
	query := psql.Select(append(roomTypeColumns, "count(*) OVER() AS total_count")...).
		From("public.room_types")

	if filter.ActiveOnly {
		query = query.Where(squirrel.Eq{"is_active": true})
	}

	orderBy := "name"
	switch filter.SortBy {
	case "name", "base_price", "created_at", "max_guests":
		orderBy = filter.SortBy
	}
	orderDir := "ASC"
	if filter.SortOrder == "DESC" || filter.SortOrder == "desc" {
		orderDir = "DESC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

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
		return nil, 0, fmt.Errorf("build list room types query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list room types failed: %w", err)
	}
	defer rows.Close()

	var result []*RoomType
	var total int
	for rows.Next() {
		rt, err := scanRoomType(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan room type failed: %w", err)
		}
		result = append(result, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate room types failed: %w", err)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, id string, cols patch.Columns) error {
	if len(cols) == 0 {
		return nil
	}
	query, args, err := psql.Update("public.room_types").
		SetMap(cols).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update room type query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update room type failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetPhoto(ctx context.Context, id string, photoPath, thumbPath string) error {
	return r.Update(ctx, id, patch.Columns{"photo_path": photoPath, "thumb_path": thumbPath})
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM public.room_types WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete room type failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) CreateUnit(ctx context.Context, u *Unit) error {
	const query = `
		INSERT INTO public.room_units (room_type_id, label, lock_id, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, u.RoomTypeID, u.Label, u.LockID, u.IsActive).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("create room unit failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetUnit(ctx context.Context, id string) (*Unit, error) {
	const query = `
		SELECT id, room_type_id, label, lock_id, is_active, created_at
		FROM public.room_units
		WHERE id = $1
	`
	var u Unit
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&u.ID, &u.RoomTypeID, &u.Label, &u.LockID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("get room unit failed: %w", err)
	}
	return &u, nil
}

func (r *pgxRepository) ListUnits(ctx context.Context, roomTypeID string) ([]*Unit, error) {
	const query = `
		SELECT id, room_type_id, label, lock_id, is_active, created_at
		FROM public.room_units
		WHERE room_type_id = $1
		ORDER BY label, id
	`
	rows, err := r.pool.Query(ctx, query, roomTypeID)
	if err != nil {
		return nil, fmt.Errorf("list room units failed: %w", err)
	}
	defer rows.Close()

	var units []*Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.RoomTypeID, &u.Label, &u.LockID, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room unit failed: %w", err)
		}
		units = append(units, &u)
	}
	return units, rows.Err()
}

func (r *pgxRepository) UpdateUnit(ctx context.Context, id string, cols patch.Columns) error {
	if len(cols) == 0 {
		return nil
	}
	query, args, err := psql.Update("public.room_units").
		SetMap(cols).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update room unit query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update room unit failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

func (r *pgxRepository) DeleteUnit(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM public.room_units WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrUnitInUse
		}
		return fmt.Errorf("delete room unit failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}
