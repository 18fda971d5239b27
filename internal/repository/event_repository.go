package repository

import (
	"context"
	"database/sql"

	"github.com/ticketloop/event-ticketing/internal/model"
)

// EventRepo provides CRUD operations for events and their ticket
// tiers.  Tier rows are created and reshaped here, but the sold
// counter is never assigned directly: creation starts it at zero and
// updates carry the previous value forward, so all movement stays
// inside the ledger.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning events, tiers and tickets.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts the event and its tiers in one transaction and
// populates the generated ID.  Tier sold counters start at zero
// regardless of input.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO events
	  (organizer_id, title, description, starts_at, category, image_url,
	   address, city, state, country, lat, lng, status)
	  VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		e.OrganizerID, e.Title, e.Description, e.StartsAt.UTC(), e.Category, e.ImageURL,
		e.Address, e.City, e.State, e.Country, e.Lat, e.Lng, e.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)

	const tierQ = `INSERT INTO ticket_tiers (event_id, name, price_cents, quantity, sold) VALUES (?,?,?,?,0)`
	for i := range e.Tiers {
		e.Tiers[i].EventID = e.ID
		e.Tiers[i].Sold = 0
		if _, err := tx.ExecContext(ctx, tierQ, e.ID, e.Tiers[i].Name, e.Tiers[i].PriceCents, e.Tiers[i].Quantity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns the event with its tiers, or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, starts_at, category, image_url,
	                  address, city, state, country, lat, lng, status, created_at, updated_at
	           FROM events WHERE id = ?`
	var e model.Event
	var lat, lng sql.NullFloat64
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.StartsAt, &e.Category, &e.ImageURL,
		&e.Address, &e.City, &e.State, &e.Country, &lat, &lng, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if lat.Valid {
		v := lat.Float64
		e.Lat = &v
	}
	if lng.Valid {
		v := lng.Float64
		e.Lng = &v
	}

	const tierQ = `SELECT event_id, name, price_cents, quantity, sold
	               FROM ticket_tiers WHERE event_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, tierQ, e.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.TicketTier
		if err := rows.Scan(&t.EventID, &t.Name, &t.PriceCents, &t.Quantity, &t.Sold); err != nil {
			return nil, err
		}
		e.Tiers = append(e.Tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Update rewrites the event fields and reconciles its tier set,
// enforcing ownership.  Sold counters are carried over for tiers that
// keep their name; shrinking a tier below its sold count or removing
// a tier that has sales returns ErrConflict so the ledger invariant
// cannot be broken from the edit path.
func (r *EventRepo) Update(ctx context.Context, organizerID uint64, e *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var ownerID uint64
	if err := tx.QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = ? FOR UPDATE`, e.ID).Scan(&ownerID); err != nil {
		if err == sql.ErrNoRows {
			return ErrEventNotFound
		}
		return err
	}
	if ownerID != organizerID {
		return ErrForbidden
	}

	const q = `UPDATE events SET title=?, description=?, starts_at=?, category=?, image_url=?,
	           address=?, city=?, state=?, country=?, lat=?, lng=?, status=? WHERE id=?`
	if _, err := tx.ExecContext(ctx, q,
		e.Title, e.Description, e.StartsAt.UTC(), e.Category, e.ImageURL,
		e.Address, e.City, e.State, e.Country, e.Lat, e.Lng, e.Status, e.ID); err != nil {
		return err
	}

	// Load current sold counters before reshaping the tier set.
	sold := make(map[string]uint32)
	rows, err := tx.QueryContext(ctx, `SELECT name, sold FROM ticket_tiers WHERE event_id = ? FOR UPDATE`, e.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var name string
		var s uint32
		if err := rows.Scan(&name, &s); err != nil {
			rows.Close()
			return err
		}
		sold[name] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	kept := make(map[string]bool, len(e.Tiers))
	for i := range e.Tiers {
		t := &e.Tiers[i]
		kept[t.Name] = true
		t.EventID = e.ID
		t.Sold = sold[t.Name]
		if t.Quantity < t.Sold {
			return ErrConflict
		}
	}
	for name, s := range sold {
		if !kept[name] && s > 0 {
			return ErrConflict
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_tiers WHERE event_id = ?`, e.ID); err != nil {
		return err
	}
	const tierQ = `INSERT INTO ticket_tiers (event_id, name, price_cents, quantity, sold) VALUES (?,?,?,?,?)`
	for _, t := range e.Tiers {
		if _, err := tx.ExecContext(ctx, tierQ, e.ID, t.Name, t.PriceCents, t.Quantity, t.Sold); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes an event and its tiers, enforcing ownership.  The
// delete is rejected with ErrConflict while confirmed tickets exist:
// those buyers hold live inventory claims.
func (r *EventRepo) Delete(ctx context.Context, organizerID, eventID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var ownerID uint64
	if err := tx.QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = ? FOR UPDATE`, eventID).Scan(&ownerID); err != nil {
		if err == sql.ErrNoRows {
			return ErrEventNotFound
		}
		return err
	}
	if ownerID != organizerID {
		return ErrForbidden
	}

	var confirmed int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = ? AND status = 'CONFIRMED'`, eventID).Scan(&confirmed); err != nil {
		return err
	}
	if confirmed > 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_tiers WHERE event_id = ?`, eventID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByOrganizer returns all events created by the given user,
// newest first, with their tiers attached.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	const q = `SELECT id, organizer_id, title, description, starts_at, category, image_url,
	                  address, city, state, country, lat, lng, status, created_at, updated_at
	           FROM events WHERE organizer_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var e model.Event
		var lat, lng sql.NullFloat64
		if err := rows.Scan(
			&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.StartsAt, &e.Category, &e.ImageURL,
			&e.Address, &e.City, &e.State, &e.Country, &lat, &lng, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if lat.Valid {
			v := lat.Float64
			e.Lat = &v
		}
		if lng.Valid {
			v := lng.Float64
			e.Lng = &v
		}
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	// Attach tiers for all events in one query.
	ids := make([]any, 0, len(events))
	placeholders := ""
	for i, e := range events {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		ids = append(ids, e.ID)
	}
	tierQ := `SELECT event_id, name, price_cents, quantity, sold
	          FROM ticket_tiers WHERE event_id IN (` + placeholders + `) ORDER BY event_id, id`
	trows, err := r.db.QueryContext(ctx, tierQ, ids...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var t model.TicketTier
		if err := trows.Scan(&t.EventID, &t.Name, &t.PriceCents, &t.Quantity, &t.Sold); err != nil {
			return nil, err
		}
		if i, ok := index[t.EventID]; ok {
			events[i].Tiers = append(events[i].Tiers, t)
		}
	}
	return events, trows.Err()
}
