package lockcode

import (
	"errors"
	"time"
)

var ErrNoProvider = errors.New("lock provider not configured")

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusFailed  Status = "failed"
)

// Record is one provisioning attempt of a door code for a booking.
type Record struct {
	ID          string
	BookingID   string
	LockID      string
	Status      Status
	Passcode    *string
	ProviderRef *string
	ValidFrom   time.Time
	ValidUntil  time.Time
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProvisionInput describes the stay a code is requested for. CheckIn and
// CheckOut are calendar days.
type ProvisionInput struct {
	BookingID string
	LockID    string
	UnitLabel string
	CheckIn   time.Time
	CheckOut  time.Time
}

type ProvisionRequest struct {
	BookingID  string    `json:"booking_id"`
	LockID     string    `json:"lock_id"`
	Label      string    `json:"label,omitempty"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
}

type ProvisionResponse struct {
	Reference string `json:"reference"`
	Passcode  string `json:"passcode"`
}
