package ledger

import "github.com/ticketloop/event-ticketing/internal/model"

// TierStats reports per-tier sales figures for an event.
type TierStats struct {
	Name         string `json:"name"`
	Sold         uint32 `json:"sold"`
	Remaining    uint32 `json:"remaining"`
	RevenueCents uint64 `json:"revenue_cents"`
}

// Stats aggregates sales figures for a whole event.  Revenue is
// derived from confirmed orders at their purchase-time prices, so a
// later tier price change does not rewrite history.  Cancelled orders
// contribute nothing.
type Stats struct {
	TotalRevenueCents uint64      `json:"total_revenue_cents"`
	TotalTicketsSold  uint64      `json:"total_tickets_sold"`
	PerTier           []TierStats `json:"ticket_tiers"`
}

// ComputeStats derives sales statistics from tier state and the
// event's orders.  It is a pure computation: tiers provide sold and
// remaining counts, confirmed orders provide revenue and ticket
// totals.  PerTier entries follow the tier order of the input.
func ComputeStats(tiers []model.TicketTier, orders []model.Ticket) Stats {
	revenueByTier := make(map[string]uint64, len(tiers))
	var stats Stats
	for _, o := range orders {
		if o.Status != model.TicketStatusConfirmed {
			continue
		}
		stats.TotalRevenueCents += o.TotalPriceCents
		stats.TotalTicketsSold += uint64(o.Quantity)
		revenueByTier[o.TierName] += o.TotalPriceCents
	}
	stats.PerTier = make([]TierStats, 0, len(tiers))
	for _, t := range tiers {
		stats.PerTier = append(stats.PerTier, TierStats{
			Name:         t.Name,
			Sold:         t.Sold,
			Remaining:    t.Remaining(),
			RevenueCents: revenueByTier[t.Name],
		})
	}
	return stats
}
