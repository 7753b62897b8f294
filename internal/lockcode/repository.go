package lockcode

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	Update(ctx context.Context, r *Record) error
	ListByBooking(ctx context.Context, bookingID string) ([]*Record, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, rec *Record) error {
	const query = `
		INSERT INTO public.lock_codes (booking_id, lock_id, status, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, rec.BookingID, rec.LockID, rec.Status, rec.ValidFrom, rec.ValidUntil).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lock code failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Update(ctx context.Context, rec *Record) error {
	const query = `
		UPDATE public.lock_codes
		SET status = $2, passcode = $3, provider_ref = $4, error = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, rec.ID, rec.Status, rec.Passcode, rec.ProviderRef, rec.Error).
		Scan(&rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update lock code failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListByBooking(ctx context.Context, bookingID string) ([]*Record, error) {
	const query = `
		SELECT id, booking_id, lock_id, status, passcode, provider_ref, valid_from, valid_until, error, created_at, updated_at
		FROM public.lock_codes
		WHERE booking_id = $1
		ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list lock codes failed: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Record, error) {
		var rec Record
		err := row.Scan(&rec.ID, &rec.BookingID, &rec.LockID, &rec.Status, &rec.Passcode, &rec.ProviderRef,
			&rec.ValidFrom, &rec.ValidUntil, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
		return &rec, err
	})
}
