package model

import (
	"errors"
	"time"
)

// Ticket statuses.  PENDING exists for implementations that persist a
// ticket before payment confirmation; this service creates tickets
// directly in CONFIRMED once the payment intent has succeeded, so
// PENDING never reaches storage here.  CANCELLED is terminal.
const (
	TicketStatusPending   = "PENDING"
	TicketStatusConfirmed = "CONFIRMED"
	TicketStatusCancelled = "CANCELLED"
)

// Roles stored on users and carried in JWT claims.
const (
	RoleOrganizer = "ORGANIZER"
	RoleAttendee  = "ATTENDEE"
	RoleAdmin     = "ADMIN"
)

// ErrAlreadyCancelled is returned when a transition is attempted out
// of the terminal CANCELLED state.  Handlers translate it into HTTP
// 409.
var ErrAlreadyCancelled = errors.New("ticket already cancelled")

// ErrInvalidTransition is returned for any other illegal status
// transition (e.g. confirming a cancelled ticket).
var ErrInvalidTransition = errors.New("invalid ticket status transition")

// Ticket represents a purchased order for a quantity of one ticket
// tier, mirroring the `tickets` table.  Tier name and quantity are
// immutable after creation; cancellation flips the status and releases
// the tier inventory but never creates a new ticket.
//
// TotalPriceCents is fixed at creation time as tier price x quantity,
// so later tier price changes do not affect recorded revenue.
type Ticket struct {
	ID              uint64    // tickets.id
	EventID         uint64    // tickets.event_id
	UserID          uint64    // tickets.user_id
	TierName        string    // tickets.tier_name
	Quantity        uint32    // tickets.quantity
	TotalPriceCents uint64    // tickets.total_price_cents
	Status          string    // tickets.status
	PaymentIntentID string    // tickets.payment_intent_id
	CreatedAt       time.Time // tickets.created_at
	UpdatedAt       time.Time // tickets.updated_at
}

// transitions is the complete legal transition set for a ticket.
// Keeping it in one table means every handler enforces the same
// lifecycle instead of re-checking statuses ad hoc.
var transitions = map[string]map[string]bool{
	TicketStatusPending:   {TicketStatusConfirmed: true, TicketStatusCancelled: true},
	TicketStatusConfirmed: {TicketStatusCancelled: true},
	TicketStatusCancelled: {},
}

// Transition moves the ticket to the requested status or reports why
// it cannot.  Re-entering CANCELLED yields ErrAlreadyCancelled so
// callers can distinguish a double cancel from other illegal moves.
func (t *Ticket) Transition(to string) error {
	if t.Status == TicketStatusCancelled && to == TicketStatusCancelled {
		return ErrAlreadyCancelled
	}
	allowed, ok := transitions[t.Status]
	if !ok || !allowed[to] {
		return ErrInvalidTransition
	}
	t.Status = to
	return nil
}

// Cancel transitions the ticket into CANCELLED.
func (t *Ticket) Cancel() error {
	return t.Transition(TicketStatusCancelled)
}

// CancellableBy reports whether the given user may cancel this
// ticket.  Cancellation is restricted to the ticket owner; admins may
// view but not cancel on a user's behalf.
func (t *Ticket) CancellableBy(userID uint64) bool {
	return t.UserID == userID
}

// ViewableBy reports whether the given user may view this ticket:
// the owner, or any user with the ADMIN role.
func (t *Ticket) ViewableBy(userID uint64, role string) bool {
	return t.UserID == userID || role == RoleAdmin
}
