package repository

import (
	"context"
	"database/sql"

	"github.com/ticketloop/event-ticketing/internal/ledger"
	"github.com/ticketloop/event-ticketing/internal/model"
)

// execer covers the query methods shared by *sql.DB and *sql.Tx so
// the same conditional statements run standalone or inside a
// purchase/cancel transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TierRepo owns the ticket_tiers table and is the only SQL code that
// touches the sold column.  It implements ledger.TierStore: the
// capacity check and the sold increment are one conditional UPDATE,
// so two concurrent reserves against the last tickets cannot both
// pass a stale check.
type TierRepo struct{ DB *sql.DB }

func NewTierRepo(db *sql.DB) *TierRepo { return &TierRepo{DB: db} }

// Tx returns a transaction-scoped ledger.TierStore.  Reserves and
// releases performed through it commit or roll back together with
// the caller's other statements.
func (r *TierRepo) Tx(tx *sql.Tx) ledger.TierStore { return &tierStore{q: tx} }

// ReserveTier implements ledger.TierStore against the pooled
// connection (used where no surrounding transaction exists).
func (r *TierRepo) ReserveTier(ctx context.Context, eventID uint64, tierName string, qty uint32) error {
	return (&tierStore{q: r.DB}).ReserveTier(ctx, eventID, tierName, qty)
}

// ReleaseTier implements ledger.TierStore against the pooled connection.
func (r *TierRepo) ReleaseTier(ctx context.Context, eventID uint64, tierName string, qty uint32) (bool, error) {
	return (&tierStore{q: r.DB}).ReleaseTier(ctx, eventID, tierName, qty)
}

// GetTx reads a single tier inside a transaction.  The purchase flow
// uses it to price the order after the reserve has claimed inventory.
func (r *TierRepo) GetTx(ctx context.Context, tx *sql.Tx, eventID uint64, tierName string) (model.TicketTier, error) {
	return getTier(ctx, tx, eventID, tierName)
}

// Get reads a single tier outside a transaction.
func (r *TierRepo) Get(ctx context.Context, eventID uint64, tierName string) (model.TicketTier, error) {
	return getTier(ctx, r.DB, eventID, tierName)
}

// ListByEvent returns all tiers of an event in insertion order.
func (r *TierRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketTier, error) {
	const q = `SELECT event_id, name, price_cents, quantity, sold
	           FROM ticket_tiers WHERE event_id = ? ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tiers := make([]model.TicketTier, 0)
	for rows.Next() {
		var t model.TicketTier
		if err := rows.Scan(&t.EventID, &t.Name, &t.PriceCents, &t.Quantity, &t.Sold); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// tierStore runs the ledger's atomic operations over either a *sql.DB
// or a *sql.Tx.
type tierStore struct{ q execer }

func (s *tierStore) ReserveTier(ctx context.Context, eventID uint64, tierName string, qty uint32) error {
	// The guard `sold + ? <= quantity` makes check-and-increment a
	// single atomic statement; the row lock taken by UPDATE serializes
	// concurrent reserves on the same tier.
	const q = `UPDATE ticket_tiers SET sold = sold + ?
	           WHERE event_id = ? AND name = ? AND sold + ? <= quantity`
	res, err := s.q.ExecContext(ctx, q, qty, eventID, tierName, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// Nothing updated: distinguish a missing tier from a full one.
	if _, err := getTier(ctx, s.q, eventID, tierName); err != nil {
		if err == sql.ErrNoRows {
			return ledger.ErrTierNotFound
		}
		return err
	}
	return ledger.ErrInsufficientInventory
}

func (s *tierStore) ReleaseTier(ctx context.Context, eventID uint64, tierName string, qty uint32) (bool, error) {
	const q = `UPDATE ticket_tiers SET sold = sold - ?
	           WHERE event_id = ? AND name = ? AND sold >= ?`
	res, err := s.q.ExecContext(ctx, q, qty, eventID, tierName, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := getTier(ctx, s.q, eventID, tierName); err != nil {
		if err == sql.ErrNoRows {
			return false, ledger.ErrTierNotFound
		}
		return false, err
	}
	// sold < qty: clamp at zero instead of going negative.
	const clamp = `UPDATE ticket_tiers SET sold = 0 WHERE event_id = ? AND name = ?`
	if _, err := s.q.ExecContext(ctx, clamp, eventID, tierName); err != nil {
		return false, err
	}
	return true, nil
}

func getTier(ctx context.Context, q execer, eventID uint64, tierName string) (model.TicketTier, error) {
	const sel = `SELECT event_id, name, price_cents, quantity, sold
	             FROM ticket_tiers WHERE event_id = ? AND name = ? LIMIT 1`
	var t model.TicketTier
	err := q.QueryRowContext(ctx, sel, eventID, tierName).
		Scan(&t.EventID, &t.Name, &t.PriceCents, &t.Quantity, &t.Sold)
	return t, err
}
