package sideeffect

import (
	"time"

	"github.com/kystlys/stay-engine/internal/notify"
)

// Event is a booking lifecycle event that triggers side effects.
type Event string

const (
	EventCreated    Event = "created"
	EventConfirmed  Event = "confirmed"
	EventCancelled  Event = "cancelled"
	EventCheckedOut Event = "checked_out"
)

// Snapshot is the booking as it stood right after the committed change.
type Snapshot struct {
	BookingID     string    `json:"booking_id"`
	RoomTypeID    string    `json:"room_type_id"`
	RoomTypeName  string    `json:"room_type_name"`
	UnitID        *string   `json:"unit_id"`
	UnitLabel     string    `json:"unit_label,omitempty"`
	LockID        *string   `json:"-"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Guests        int       `json:"guests"`
	GuestName     string    `json:"guest_name"`
	GuestEmail    string    `json:"guest_email,omitempty"`
	GuestPhone    string    `json:"guest_phone,omitempty"`
	TotalPrice    int64     `json:"total_price"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
}

type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusQueued  Status = "queued"
)

type LockResult struct {
	Status     Status `json:"status"`
	Action     string `json:"action"` // provision or revoke
	CodeStatus string `json:"code_status,omitempty"`
	Revoked    int    `json:"revoked,omitempty"`
	Error      string `json:"error,omitempty"`
}

type WebhookResult struct {
	Status Status   `json:"status"`
	Events []string `json:"events,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Result reports each collaborator separately. A failure here never undoes
// the booking change that triggered it.
type Result struct {
	Lock         *LockResult     `json:"lock,omitempty"`
	Notification *notify.Outcome `json:"notification,omitempty"`
	Webhook      *WebhookResult  `json:"webhook,omitempty"`
}
