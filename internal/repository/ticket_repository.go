package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ticketloop/event-ticketing/internal/model"
)

// TicketRepo provides persistence for purchased tickets.  Inventory
// movement is never performed here; the purchase and cancel handlers
// pair these methods with ledger calls inside one transaction.
type TicketRepo struct{ db *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying handle for transaction orchestration.
func (r *TicketRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a ticket within an existing transaction and
// populates the generated ID and timestamps.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	const q = `INSERT INTO tickets
	  (event_id, user_id, tier_name, quantity, total_price_cents, status, payment_intent_id)
	  VALUES (?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		t.EventID, t.UserID, t.TierName, t.Quantity, t.TotalPriceCents, t.Status, t.PaymentIntentID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	const sel = `SELECT created_at, updated_at FROM tickets WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetForUpdateTx loads a ticket with a row lock so a concurrent
// cancel of the same ticket serializes behind this transaction.
// Returns ErrTicketNotFound when no such ticket exists.
func (r *TicketRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Ticket, error) {
	const q = `SELECT id, event_id, user_id, tier_name, quantity, total_price_cents,
	                  status, payment_intent_id, created_at, updated_at
	           FROM tickets WHERE id = ? FOR UPDATE`
	var t model.Ticket
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.EventID, &t.UserID, &t.TierName, &t.Quantity, &t.TotalPriceCents,
		&t.Status, &t.PaymentIntentID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Ticket{}, ErrTicketNotFound
		}
		return model.Ticket{}, err
	}
	return t, nil
}

// UpdateStatusTx persists a status change within a transaction.
func (r *TicketRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE tickets SET status = ? WHERE id = ?`, status, id)
	return err
}

// TicketDetail is a ticket joined with a summary of its event, as
// returned to ticket listing and detail endpoints.
type TicketDetail struct {
	ID              uint64  `json:"id"`
	EventID         uint64  `json:"event_id"`
	UserID          uint64  `json:"user_id"`
	TierName        string  `json:"tier"`
	Quantity        uint32  `json:"quantity"`
	TotalPriceCents uint64  `json:"total_price_cents"`
	Status          string  `json:"status"`
	PaymentIntentID string  `json:"payment_intent_id"`
	CreatedAt       string  `json:"created_at"`
	EventTitle      string  `json:"event_title"`
	EventStartsAt   *string `json:"event_starts_at"`
	EventImageURL   string  `json:"event_image_url"`
	EventCity       string  `json:"event_city"`
}

const ticketDetailColumns = `t.id, t.event_id, t.user_id, t.tier_name, t.quantity,
	t.total_price_cents, t.status, t.payment_intent_id, t.created_at,
	e.title, e.starts_at, e.image_url, e.city`

func scanTicketDetail(scan func(dest ...any) error) (TicketDetail, error) {
	var d TicketDetail
	var createdAt time.Time
	var startsAt sql.NullTime
	err := scan(
		&d.ID, &d.EventID, &d.UserID, &d.TierName, &d.Quantity,
		&d.TotalPriceCents, &d.Status, &d.PaymentIntentID, &createdAt,
		&d.EventTitle, &startsAt, &d.EventImageURL, &d.EventCity)
	if err != nil {
		return TicketDetail{}, err
	}
	d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if startsAt.Valid {
		iso := startsAt.Time.UTC().Format(time.RFC3339)
		d.EventStartsAt = &iso
	}
	return d, nil
}

// GetDetail returns one ticket with its event summary, or
// ErrTicketNotFound.  Authorization is the caller's concern: the
// row is returned regardless of owner so handlers can distinguish
// 404 from 403.
func (r *TicketRepo) GetDetail(ctx context.Context, id uint64) (TicketDetail, error) {
	q := `SELECT ` + ticketDetailColumns + `
	      FROM tickets t JOIN events e ON e.id = t.event_id
	      WHERE t.id = ?`
	d, err := scanTicketDetail(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return TicketDetail{}, ErrTicketNotFound
		}
		return TicketDetail{}, err
	}
	return d, nil
}

// ListByUser returns all tickets purchased by the given user, newest
// first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]TicketDetail, error) {
	q := `SELECT ` + ticketDetailColumns + `
	      FROM tickets t JOIN events e ON e.id = t.event_id
	      WHERE t.user_id = ?
	      ORDER BY t.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TicketDetail, 0)
	for rows.Next() {
		d, err := scanTicketDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListByEvent returns all tickets for an event, used by the
// organizer statistics endpoint.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error) {
	const q = `SELECT id, event_id, user_id, tier_name, quantity, total_price_cents,
	                  status, payment_intent_id, created_at, updated_at
	           FROM tickets WHERE event_id = ?`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Ticket, 0)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.UserID, &t.TierName, &t.Quantity, &t.TotalPriceCents,
			&t.Status, &t.PaymentIntentID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
