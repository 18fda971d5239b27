// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketConfirmedEvent is published when a ticket purchase is confirmed.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type TicketConfirmedEvent struct {
	TicketID        uint64 `json:"ticket_id"`
	UserID          uint64 `json:"user_id"`
	EventID         uint64 `json:"event_id"`
	EventTitle      string `json:"event_title"`
	TierName        string `json:"tier_name"`
	Quantity        uint32 `json:"quantity"`
	TotalPriceCents uint64 `json:"total_price_cents"`
	PaymentIntentID string `json:"payment_intent_id"`
	ConfirmedAt     string `json:"confirmed_at"`
}

// TicketCancelledEvent is published when an attendee cancels a confirmed
// ticket and its inventory is returned to the tier.
type TicketCancelledEvent struct {
	TicketID    uint64 `json:"ticket_id"`
	UserID      uint64 `json:"user_id"`
	EventID     uint64 `json:"event_id"`
	TierName    string `json:"tier_name"`
	Quantity    uint32 `json:"quantity"`
	CancelledAt string `json:"cancelled_at"`
}
