// Package lockcode provisions and revokes smart-lock door codes for
// bookings. Every attempt is persisted so a code is never left in an
// unknown state.
package lockcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/pkg/retry"
)

type Service struct {
	repo         Repository
	provider     Provider
	policy       retry.Policy
	checkInHour  int
	checkOutHour int
}

func NewService(repo Repository, provider Provider, policy retry.Policy, checkInHour, checkOutHour int) *Service {
	return &Service{
		repo:         repo,
		provider:     provider,
		policy:       policy,
		checkInHour:  checkInHour,
		checkOutHour: checkOutHour,
	}
}

// Window is the validity of a code: check-in day at the check-in hour to
// check-out day at the check-out hour, UTC.
func (s *Service) Window(checkIn, checkOut time.Time) (from, until time.Time) {
	from = dates.Day(checkIn).Add(time.Duration(s.checkInHour) * time.Hour)
	until = dates.Day(checkOut).Add(time.Duration(s.checkOutHour) * time.Hour)
	return from, until
}

// Provision returns the existing active code for the booking, or records a
// pending attempt and settles it as active or failed. The record is returned
// even when provisioning fails.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*Record, error) {
	existing, err := s.repo.ListByBooking(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Status == StatusActive && r.LockID == in.LockID {
			return r, nil
		}
	}

	from, until := s.Window(in.CheckIn, in.CheckOut)
	rec := &Record{
		BookingID:  in.BookingID,
		LockID:     in.LockID,
		Status:     StatusPending,
		ValidFrom:  from,
		ValidUntil: until,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	if s.provider == nil {
		return s.fail(ctx, rec, ErrNoProvider)
	}

	var resp ProvisionResponse
	_, callErr := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		resp, err = s.provider.Request(ctx, ProvisionRequest{
			BookingID:  in.BookingID,
			LockID:     in.LockID,
			Label:      in.UnitLabel,
			ValidFrom:  from,
			ValidUntil: until,
		})
		return err
	})
	if callErr != nil {
		return s.fail(ctx, rec, callErr)
	}

	rec.Status = StatusActive
	rec.Passcode = &resp.Passcode
	if resp.Reference != "" {
		rec.ProviderRef = &resp.Reference
	}
	rec.Error = ""
	if err := s.repo.Update(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func (s *Service) fail(ctx context.Context, rec *Record, cause error) (*Record, error) {
	rec.Status = StatusFailed
	rec.Error = cause.Error()
	// Persist with a fresh context so a timed-out call is still recorded.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.Update(saveCtx, rec); err != nil {
		return rec, errors.Join(cause, err)
	}
	return rec, cause
}

// Revoke invalidates every code issued for the booking. Pending and failed
// attempts are closed without calling the provider. A booking with no codes
// is a no-op. It reports how many codes were revoked at the provider.
func (s *Service) Revoke(ctx context.Context, bookingID string) (int, error) {
	records, err := s.repo.ListByBooking(ctx, bookingID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	var errs []error
	for _, rec := range records {
		switch rec.Status {
		case StatusRevoked:
			continue
		case StatusActive:
			if rec.ProviderRef != nil {
				if s.provider == nil {
					errs = append(errs, ErrNoProvider)
					continue
				}
				ref := *rec.ProviderRef
				if _, err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
					return s.provider.Revoke(ctx, ref)
				}); err != nil {
					rec.Error = err.Error()
					errs = append(errs, fmt.Errorf("revoke %s: %w", ref, err))
					if err := s.repo.Update(context.WithoutCancel(ctx), rec); err != nil {
						errs = append(errs, fmt.Errorf("record revoke failure: %w", err))
					}
					continue
				}
				revoked++
			}
		}
		rec.Status = StatusRevoked
		if err := s.repo.Update(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return revoked, errors.Join(errs...)
}
