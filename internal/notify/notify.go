// Package notify sends guest messages by email and SMS through an HTTP
// notification provider. Each channel succeeds or fails on its own.
package notify

import (
	"context"
	"errors"

	"github.com/kystlys/stay-engine/internal/pkg/retry"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

const (
	TemplateBookingReceived  = "booking_received"
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateBookingCancelled = "booking_cancelled"
)

var ErrNoProvider = errors.New("notification provider not configured")

// Message is one guest notification; channels without contact data are
// skipped.
type Message struct {
	Template string
	Email    string
	Phone    string
	Data     map[string]any
}

// Envelope is what the provider receives for one channel.
type Envelope struct {
	Channel  Channel        `json:"channel"`
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

type ChannelOutcome struct {
	Sent     bool   `json:"sent"`
	Skipped  bool   `json:"skipped,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Outcome struct {
	Email ChannelOutcome `json:"email"`
	SMS   ChannelOutcome `json:"sms"`
}

// Failed reports whether any attempted channel failed.
func (o Outcome) Failed() bool {
	return o.Email.Error != "" || o.SMS.Error != ""
}

type Sender interface {
	Send(ctx context.Context, env Envelope) error
}

type Dispatcher struct {
	sender Sender
	policy retry.Policy
}

func NewDispatcher(sender Sender, policy retry.Policy) *Dispatcher {
	return &Dispatcher{sender: sender, policy: policy}
}

func (d *Dispatcher) Notify(ctx context.Context, msg Message) Outcome {
	return Outcome{
		Email: d.send(ctx, ChannelEmail, msg.Email, msg),
		SMS:   d.send(ctx, ChannelSMS, msg.Phone, msg),
	}
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, to string, msg Message) ChannelOutcome {
	if to == "" {
		return ChannelOutcome{Skipped: true}
	}
	if d.sender == nil {
		return ChannelOutcome{Error: ErrNoProvider.Error()}
	}
	env := Envelope{Channel: ch, To: to, Template: msg.Template, Data: msg.Data}
	attempts, err := retry.Do(ctx, d.policy, func(ctx context.Context) error {
		return d.sender.Send(ctx, env)
	})
	if err != nil {
		return ChannelOutcome{Attempts: attempts, Error: err.Error()}
	}
	return ChannelOutcome{Sent: true, Attempts: attempts}
}
