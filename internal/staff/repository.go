package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Member, error)
	GetByID(ctx context.Context, id string) (*Member, error)
	Create(ctx context.Context, m *Member) error
	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const selectMember = `
	SELECT id, email, password_hash, display_name, is_active, last_login_at, created_at
	FROM public.staff
`

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.DisplayName, &m.IsActive, &m.LastLoginAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan staff member failed: %w", err)
	}
	return &m, nil
}

func (r *pgxRepository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, selectMember+"WHERE email = $1", email))
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Member, error) {
	return scanMember(r.pool.QueryRow(ctx, selectMember+"WHERE id = $1", id))
}

func (r *pgxRepository) Create(ctx context.Context, m *Member) error {
	const query = `
		INSERT INTO public.staff (email, password_hash, display_name, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, m.Email, m.PasswordHash, m.DisplayName, m.IsActive).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailAlreadyUsed
		}
		return fmt.Errorf("insert staff member failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) UpdateLastLogin(ctx context.Context, id string, t time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE public.staff SET last_login_at = $2 WHERE id = $1`, id, t)
	if err != nil {
		return fmt.Errorf("update last login failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE public.staff SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password hash failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
