package availability

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kystlys/stay-engine/internal/pkg/dates"
)

// maxRangeDays caps how many dates one upsert or listing may span.
const maxRangeDays = 366

// UpsertOverrideRequest applies the same override to every date in [From, To].
type UpsertOverrideRequest struct {
	RoomTypeID string `validate:"required,uuid"`
	From       string `validate:"required,datetime=2006-01-02"`
	To         string `validate:"required,datetime=2006-01-02"`
	OpenUnits  *int   `validate:"omitempty,min=0"`
	Available  *bool
	Price      *int64 `validate:"omitempty,min=0"`
	MinStay    int    `validate:"omitempty,min=1,max=365"`
}

// UpsertPriceRequest sets a date-specific price on every date in [From, To].
type UpsertPriceRequest struct {
	RoomTypeID string `validate:"required,uuid"`
	From       string `validate:"required,datetime=2006-01-02"`
	To         string `validate:"required,datetime=2006-01-02"`
	Price      int64  `validate:"min=0"`
}

type ListRequest struct {
	RoomTypeID string `validate:"required,uuid"`
	From       string `validate:"required,datetime=2006-01-02"`
	To         string `validate:"required,datetime=2006-01-02"`
}

type Service interface {
	UpsertOverrides(ctx context.Context, req UpsertOverrideRequest) ([]*Override, error)
	ListOverrides(ctx context.Context, req ListRequest) ([]*Override, error)
	DeleteOverride(ctx context.Context, roomTypeID, date string) error

	UpsertDatePrices(ctx context.Context, req UpsertPriceRequest) ([]*DatePrice, error)
	ListDatePrices(ctx context.Context, req ListRequest) ([]*DatePrice, error)
	DeleteDatePrice(ctx context.Context, roomTypeID, date string) error
}

type service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		validate: validator.New(),
	}
}

// expand validates the request struct and returns every date in [from, to].
func (s *service) expand(req any, from, to string) ([]time.Time, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"reason": err.Error()})
	}
	start, err := dates.ParseDay(from)
	if err != nil {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"reason": err.Error()})
	}
	end, err := dates.ParseDay(to)
	if err != nil {
		return nil, ErrInvalidInput.WithDetails(map[string]any{"reason": err.Error()})
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	// [from, to] is inclusive, so enumerate nights up to the day after.
	days := dates.Nights(start, dates.AddDays(end, 1))
	if len(days) > maxRangeDays {
		return nil, ErrRangeTooLong
	}
	return days, nil
}

func (s *service) UpsertOverrides(ctx context.Context, req UpsertOverrideRequest) ([]*Override, error) {
	days, err := s.expand(req, req.From, req.To)
	if err != nil {
		return nil, err
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}
	minStay := req.MinStay
	if minStay == 0 {
		minStay = 1
	}

	overrides := make([]*Override, 0, len(days))
	for _, d := range days {
		overrides = append(overrides, &Override{
			RoomTypeID: req.RoomTypeID,
			Date:       d,
			OpenUnits:  req.OpenUnits,
			Available:  available,
			Price:      req.Price,
			MinStay:    minStay,
		})
	}
	if err := s.repo.UpsertOverrides(ctx, overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

func (s *service) ListOverrides(ctx context.Context, req ListRequest) ([]*Override, error) {
	days, err := s.expand(req, req.From, req.To)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.ListOverrides(ctx, Filter{RoomTypeID: req.RoomTypeID, From: days[0], To: days[len(days)-1]})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *service) DeleteOverride(ctx context.Context, roomTypeID, date string) error {
	if _, err := dates.ParseDay(date); err != nil {
		return ErrInvalidInput.WithDetails(map[string]any{"reason": err.Error()})
	}
	return s.repo.DeleteOverride(ctx, roomTypeID, date)
}

func (s *service) UpsertDatePrices(ctx context.Context, req UpsertPriceRequest) ([]*DatePrice, error) {
	days, err := s.expand(req, req.From, req.To)
	if err != nil {
		return nil, err
	}

	prices := make([]*DatePrice, 0, len(days))
	for _, d := range days {
		prices = append(prices, &DatePrice{RoomTypeID: req.RoomTypeID, Date: d, Price: req.Price})
	}
	if err := s.repo.UpsertDatePrices(ctx, prices); err != nil {
		return nil, err
	}
	return prices, nil
}

func (s *service) ListDatePrices(ctx context.Context, req ListRequest) ([]*DatePrice, error) {
	days, err := s.expand(req, req.From, req.To)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.ListDatePrices(ctx, Filter{RoomTypeID: req.RoomTypeID, From: days[0], To: days[len(days)-1]})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *service) DeleteDatePrice(ctx context.Context, roomTypeID, date string) error {
	if _, err := dates.ParseDay(date); err != nil {
		return ErrInvalidInput.WithDetails(map[string]any{"reason": err.Error()})
	}
	return s.repo.DeleteDatePrice(ctx, roomTypeID, date)
}
