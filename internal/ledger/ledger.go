// Package ledger is the sole authority over ticket-tier sold counters.
// Every mutation of a tier's sold count goes through Reserve or
// Release so the capacity invariant (0 <= sold <= quantity) is
// enforced in exactly one place.  The atomic check-and-increment
// itself is delegated to the TierStore, which backs it with a single
// conditional database update; the ledger validates input, maps store
// outcomes to typed errors and records invariant violations.
package ledger

import (
	"context"
	"errors"
	"log"
	"time"
)

// Sentinel errors returned by Reserve and Release.  Handlers map each
// to a distinct HTTP status and must never swallow them.
var (
	// ErrTierNotFound indicates the event has no tier with the
	// requested name.
	ErrTierNotFound = errors.New("ticket tier not found")
	// ErrInsufficientInventory indicates the tier cannot cover the
	// requested quantity.  State is left unchanged.
	ErrInsufficientInventory = errors.New("not enough tickets available")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// TierStore is the storage contract the ledger operates on.  Both
// operations must be atomic with respect to concurrent calls against
// the same (event, tier): ReserveTier increments sold by qty only if
// sold+qty <= quantity as one indivisible operation, and ReleaseTier
// decrements sold by qty, reporting clamped=true when the decrement
// had to be floored at zero.
//
// The SQL implementation backs both with single conditional UPDATE
// statements; callers running inside a transaction obtain a
// transaction-scoped store so the reserve commits or rolls back with
// the rest of the purchase.
type TierStore interface {
	ReserveTier(ctx context.Context, eventID uint64, tierName string, qty uint32) error
	ReleaseTier(ctx context.Context, eventID uint64, tierName string, qty uint32) (clamped bool, err error)
}

// Reservation describes a successful inventory claim.
type Reservation struct {
	EventID    uint64
	TierName   string
	Quantity   uint32
	ReservedAt time.Time
}

// Ledger mediates all sold-count mutations.  The zero value is not
// usable; construct with New.
type Ledger struct {
	logger *log.Logger
}

// New returns a Ledger that reports invariant violations through the
// given logger.  A nil logger falls back to the standard logger.
func New(logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{logger: logger}
}

// Reserve claims qty tickets from the named tier.  It succeeds and
// increments sold only when the tier has at least qty unsold tickets
// at the moment of commit; otherwise it returns
// ErrInsufficientInventory and leaves state unchanged.  Validation
// errors are reported before the store is touched.
func (l *Ledger) Reserve(ctx context.Context, store TierStore, eventID uint64, tierName string, qty uint32) (Reservation, error) {
	if qty == 0 {
		return Reservation{}, ErrInvalidQuantity
	}
	if err := store.ReserveTier(ctx, eventID, tierName, qty); err != nil {
		return Reservation{}, err
	}
	return Reservation{
		EventID:    eventID,
		TierName:   tierName,
		Quantity:   qty,
		ReservedAt: time.Now().UTC(),
	}, nil
}

// Release returns qty tickets to the named tier.  The decrement is
// floored so sold never drops below zero; hitting the floor means an
// earlier reserve/release pair went missing, so it is logged as a
// warning rather than silently ignored.  Release still succeeds in
// that case: the counter is already at its lowest legal value.
func (l *Ledger) Release(ctx context.Context, store TierStore, eventID uint64, tierName string, qty uint32) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	clamped, err := store.ReleaseTier(ctx, eventID, tierName, qty)
	if err != nil {
		return err
	}
	if clamped {
		l.logger.Printf("ledger: release of %d on event=%d tier=%q clamped at zero; sold counter was inconsistent", qty, eventID, tierName)
	}
	return nil
}
