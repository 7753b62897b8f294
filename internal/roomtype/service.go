package roomtype

import (
	"context"
	"strings"

	"github.com/kystlys/stay-engine/internal/pkg/patch"
)

type CreateRequest struct {
	Name        string
	Description string
	MaxGuests   int
	BasePrice   int64
	UnitCount   *int
}

type CreateUnitRequest struct {
	RoomTypeID string
	Label      string
	LockID     *string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*RoomType, error)
	GetByID(ctx context.Context, id string) (*RoomType, error)
	List(ctx context.Context, filter Filter) ([]*RoomType, int, error)
	Update(ctx context.Context, id string, p Patch) (*RoomType, error)
	Delete(ctx context.Context, id string) error

	CreateUnit(ctx context.Context, req CreateUnitRequest) (*Unit, error)
	ListUnits(ctx context.Context, roomTypeID string) ([]*Unit, error)
	UpdateUnit(ctx context.Context, id string, p UnitPatch) (*Unit, error)
	DeleteUnit(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*RoomType, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}
	if req.MaxGuests < 1 {
		return nil, ErrInvalidMaxGuests
	}
	if req.BasePrice < 0 {
		return nil, ErrInvalidPrice
	}
	if req.UnitCount != nil && *req.UnitCount < 0 {
		return nil, ErrInvalidUnitCount
	}

	rt := &RoomType{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		MaxGuests:   req.MaxGuests,
		BasePrice:   req.BasePrice,
		UnitCount:   req.UnitCount,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*RoomType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*RoomType, int, error) {
	return s.repo.List(ctx, filter)
}

// Update applies a validated patch. Price changes never touch existing
// bookings, which keep the total computed at creation.
func (s *service) Update(ctx context.Context, id string, p Patch) (*RoomType, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if name, ok := p.Name.Get(); ok && strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if v, ok := p.MaxGuests.Get(); ok && v < 1 {
		return nil, ErrInvalidMaxGuests
	}
	if v, ok := p.BasePrice.Get(); ok && v < 0 {
		return nil, ErrInvalidPrice
	}
	if v, ok := p.UnitCount.Get(); ok && v != nil && *v < 0 {
		return nil, ErrInvalidUnitCount
	}

	cols := patch.Columns{}
	patch.Add(cols, "name", p.Name)
	patch.Add(cols, "description", p.Description)
	patch.Add(cols, "max_guests", p.MaxGuests)
	patch.Add(cols, "base_price", p.BasePrice)
	patch.Add(cols, "unit_count", p.UnitCount)
	patch.Add(cols, "is_active", p.IsActive)

	if err := s.repo.Update(ctx, id, cols); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) CreateUnit(ctx context.Context, req CreateUnitRequest) (*Unit, error) {
	if strings.TrimSpace(req.Label) == "" {
		return nil, ErrLabelRequired
	}
	if _, err := s.repo.GetByID(ctx, req.RoomTypeID); err != nil {
		return nil, err
	}

	u := &Unit{
		RoomTypeID: req.RoomTypeID,
		Label:      strings.TrimSpace(req.Label),
		LockID:     req.LockID,
		IsActive:   true,
	}
	if err := s.repo.CreateUnit(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ListUnits(ctx context.Context, roomTypeID string) ([]*Unit, error) {
	if _, err := s.repo.GetByID(ctx, roomTypeID); err != nil {
		return nil, err
	}
	return s.repo.ListUnits(ctx, roomTypeID)
}

func (s *service) UpdateUnit(ctx context.Context, id string, p UnitPatch) (*Unit, error) {
	if label, ok := p.Label.Get(); ok && strings.TrimSpace(label) == "" {
		return nil, ErrLabelRequired
	}

	cols := patch.Columns{}
	patch.Add(cols, "label", p.Label)
	patch.Add(cols, "lock_id", p.LockID)
	patch.Add(cols, "is_active", p.IsActive)

	if err := s.repo.UpdateUnit(ctx, id, cols); err != nil {
		return nil, err
	}
	return s.repo.GetUnit(ctx, id)
}

func (s *service) DeleteUnit(ctx context.Context, id string) error {
	return s.repo.DeleteUnit(ctx, id)
}
