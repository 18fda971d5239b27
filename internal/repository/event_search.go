package repository

import (
	"context"
	"strings"
	"time"
)

// EventSearchQuery defines filters & pagination for browsing events.
// Only PUBLISHED events are returned.
type EventSearchQuery struct {
	Category string
	City     string
	Search   string // matches title or description
	From     *time.Time
	Page     int
	PageSize int
}

// PublicEventRow is the flattened row returned to the public browse
// and search endpoints.  Tier details are summarized to price bounds
// and remaining counts so guests can gauge availability without a
// second request.
type PublicEventRow struct {
	ID            uint64  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	StartsAt      string  `json:"starts_at"`
	Category      string  `json:"category"`
	ImageURL      string  `json:"image_url"`
	City          string  `json:"city"`
	Country       string  `json:"country"`
	MinPriceCents uint32  `json:"min_price_cents"`
	MinPrice      float64 `json:"min_price"`
	Remaining     uint64  `json:"tickets_remaining"`
}

// SearchPublished returns published events matching the query plus
// the total match count for pagination.
func (r *EventRepo) SearchPublished(ctx context.Context, q EventSearchQuery) ([]PublicEventRow, int64, error) {
	where := []string{"e.status = 'PUBLISHED'"}
	args := []any{}

	if q.Category != "" {
		where = append(where, "LOWER(e.category) = ?")
		args = append(args, strings.ToLower(q.Category))
	}
	if q.City != "" {
		where = append(where, "LOWER(e.city) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.City)+"%")
	}
	if q.Search != "" {
		where = append(where, "(LOWER(e.title) LIKE ? OR LOWER(e.description) LIKE ?)")
		pat := "%" + strings.ToLower(q.Search) + "%"
		args = append(args, pat, pat)
	}
	if q.From != nil {
		where = append(where, "e.starts_at >= ?")
		args = append(args, q.From.UTC())
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM events e WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			e.id,
			e.title,
			e.description,
			DATE_FORMAT(e.starts_at, '%Y-%m-%d %T') AS starts_at,
			e.category,
			e.image_url,
			e.city,
			e.country,
			COALESCE(MIN(t.price_cents), 0) AS min_price_cents,
			COALESCE(SUM(t.quantity - t.sold), 0) AS remaining
		FROM events e
		LEFT JOIN ticket_tiers t ON t.event_id = e.id
		WHERE ` + cond + `
		GROUP BY e.id
		ORDER BY e.starts_at ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PublicEventRow, 0, limit)
	for rows.Next() {
		var d PublicEventRow
		if err := rows.Scan(
			&d.ID,
			&d.Title,
			&d.Description,
			&d.StartsAt,
			&d.Category,
			&d.ImageURL,
			&d.City,
			&d.Country,
			&d.MinPriceCents,
			&d.Remaining,
		); err != nil {
			return nil, 0, err
		}
		d.MinPrice = float64(d.MinPriceCents) / 100.0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
