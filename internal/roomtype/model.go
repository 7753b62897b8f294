package roomtype

import (
	"net/http"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/apperror"
	"github.com/kystlys/stay-engine/internal/pkg/patch"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "room type not found")
	ErrUnitNotFound     = apperror.New(http.StatusNotFound, "room unit not found")
	ErrNameRequired     = apperror.New(http.StatusBadRequest, "name is required")
	ErrLabelRequired    = apperror.New(http.StatusBadRequest, "unit label is required")
	ErrInvalidMaxGuests = apperror.New(http.StatusBadRequest, "max_guests must be at least 1")
	ErrInvalidPrice     = apperror.New(http.StatusBadRequest, "price must not be negative")
	ErrInvalidUnitCount = apperror.New(http.StatusBadRequest, "unit_count must not be negative")
	ErrInUse            = apperror.New(http.StatusConflict, "room type has bookings and cannot be deleted")
	ErrUnitInUse        = apperror.New(http.StatusConflict, "room unit has bookings and cannot be deleted")
	ErrNotAnImage       = apperror.New(http.StatusBadRequest, "uploaded file is not a supported image")
)

// RoomType is a bookable category of accommodation, e.g. "Havsuite".
type RoomType struct {
	ID          string
	Name        string
	Description string
	MaxGuests   int
	BasePrice   int64 // minor currency units per night
	UnitCount   *int  // nil means a single unit
	IsActive    bool
	PhotoPath   *string
	ThumbPath   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ConfiguredUnits is the number of interchangeable rooms the type offers
// when no availability override says otherwise.
func (rt *RoomType) ConfiguredUnits() int {
	if rt.UnitCount == nil {
		return 1
	}
	return *rt.UnitCount
}

// Unit is one physical room of a room type.
type Unit struct {
	ID         string
	RoomTypeID string
	Label      string
	LockID     *string // smart-lock binding
	IsActive   bool
	CreatedAt  time.Time
}

type Filter struct {
	ActiveOnly bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Patch lists the updatable columns of a room type.
type Patch struct {
	Name        patch.Field[string] `json:"name"`
	Description patch.Field[string] `json:"description"`
	MaxGuests   patch.Field[int]    `json:"max_guests"`
	BasePrice   patch.Field[int64]  `json:"base_price"`
	UnitCount   patch.Field[*int]   `json:"unit_count"`
	IsActive    patch.Field[bool]   `json:"is_active"`
}

// UnitPatch lists the updatable columns of a room unit.
type UnitPatch struct {
	Label    patch.Field[string]  `json:"label"`
	LockID   patch.Field[*string] `json:"lock_id"`
	IsActive patch.Field[bool]    `json:"is_active"`
}
