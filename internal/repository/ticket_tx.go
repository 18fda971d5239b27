package repository

import (
	"context"
	"database/sql"

	"github.com/ticketloop/event-ticketing/internal/ledger"
	"github.com/ticketloop/event-ticketing/internal/model"
)

// TicketTx bundles the statements of one purchase or cancel
// transaction.  Everything done through it commits or rolls back as a
// unit, the inventory movement included.  Handlers depend on this
// interface rather than *sql.Tx so the purchase and cancel flows can
// be exercised against fakes.
type TicketTx interface {
	// Tiers returns the transaction-scoped inventory store for the
	// ledger to operate on.
	Tiers() ledger.TierStore
	// Tier reads a single tier under the transaction's locks.
	Tier(ctx context.Context, eventID uint64, tierName string) (model.TicketTier, error)
	// CreateTicket inserts a ticket and populates ID and timestamps.
	CreateTicket(ctx context.Context, t *model.Ticket) error
	// TicketForUpdate loads a ticket with a row lock, or
	// ErrTicketNotFound.
	TicketForUpdate(ctx context.Context, id uint64) (model.Ticket, error)
	// SetTicketStatus persists a status change.
	SetTicketStatus(ctx context.Context, id uint64, status string) error
	Commit() error
	Rollback() error
}

// TxStore opens TicketTx transactions over the shared pool.
type TxStore struct {
	tickets *TicketRepo
	tiers   *TierRepo
}

func NewTxStore(tickets *TicketRepo, tiers *TierRepo) *TxStore {
	return &TxStore{tickets: tickets, tiers: tiers}
}

// Begin starts a database transaction wrapped as a TicketTx.
func (s *TxStore) Begin(ctx context.Context) (TicketTx, error) {
	tx, err := s.tickets.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTicketTx{tx: tx, tickets: s.tickets, tiers: s.tiers}, nil
}

type sqlTicketTx struct {
	tx      *sql.Tx
	tickets *TicketRepo
	tiers   *TierRepo
}

func (t *sqlTicketTx) Tiers() ledger.TierStore { return t.tiers.Tx(t.tx) }

func (t *sqlTicketTx) Tier(ctx context.Context, eventID uint64, tierName string) (model.TicketTier, error) {
	return t.tiers.GetTx(ctx, t.tx, eventID, tierName)
}

func (t *sqlTicketTx) CreateTicket(ctx context.Context, tk *model.Ticket) error {
	return t.tickets.CreateTx(ctx, t.tx, tk)
}

func (t *sqlTicketTx) TicketForUpdate(ctx context.Context, id uint64) (model.Ticket, error) {
	return t.tickets.GetForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTicketTx) SetTicketStatus(ctx context.Context, id uint64, status string) error {
	return t.tickets.UpdateStatusTx(ctx, t.tx, id, status)
}

func (t *sqlTicketTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTicketTx) Rollback() error { return t.tx.Rollback() }
