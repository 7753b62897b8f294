package availability

import (
	"net/http"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "availability entry not found")
	ErrRoomTypeNotFound = apperror.New(http.StatusNotFound, "room type not found")
	ErrInvalidRange     = apperror.New(http.StatusBadRequest, "from must not be after to")
	ErrRangeTooLong     = apperror.New(http.StatusBadRequest, "date range is too long")
	ErrInvalidInput     = apperror.New(http.StatusBadRequest, "invalid availability input")
)

// Override is an administrator or sync supplied exception for one room type
// on one calendar date.
type Override struct {
	RoomTypeID string
	Date       time.Time
	OpenUnits  *int   // nil uses the room type's unit count
	Available  bool   // false with nil OpenUnits closes the date
	Price      *int64 // nil falls through the price waterfall
	MinStay    int
	UpdatedAt  time.Time
}

// DatePrice is the highest-priority nightly price for one room type on one date.
type DatePrice struct {
	RoomTypeID string
	Date       time.Time
	Price      int64
	UpdatedAt  time.Time
}

type Filter struct {
	RoomTypeID string
	From       time.Time
	To         time.Time // inclusive
}
