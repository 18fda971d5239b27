package model

import "time"

// Event statuses.  Only PUBLISHED events appear in public browse and
// search results.  CANCELLED events remain visible to their organizer.
const (
	EventStatusDraft     = "DRAFT"
	EventStatusPublished = "PUBLISHED"
	EventStatusCancelled = "CANCELLED"
)

// Event represents a ticketed event as stored in the `events` table.
// Ticket inventory is carried by the associated TicketTier rows; an
// event owns zero or more tiers whose names are unique within the
// event.
//
// Fields:
//  ID          – primary key identifier.
//  OrganizerID – user who created the event; only this user may
//                mutate, delete or view statistics for it.
//  Title       – event title.
//  Description – long-form description shown on the detail page.
//  StartsAt    – when the event takes place.
//  Category    – free-form category used for browse filtering.
//  ImageURL    – location of the event image; storage of the image
//                itself is out of scope for this service.
//  Address/City/State/Country – venue location.
//  Lat/Lng     – optional coordinates (nil when unknown).
//  Status      – DRAFT, PUBLISHED or CANCELLED.
type Event struct {
	ID          uint64       // events.id
	OrganizerID uint64       // events.organizer_id
	Title       string       // events.title
	Description string       // events.description
	StartsAt    time.Time    // events.starts_at
	Category    string       // events.category
	ImageURL    string       // events.image_url
	Address     string       // events.address
	City        string       // events.city
	State       string       // events.state
	Country     string       // events.country
	Lat         *float64     // events.lat (nullable)
	Lng         *float64     // events.lng (nullable)
	Status      string       // events.status
	Tiers       []TicketTier // ticket_tiers rows for this event
	CreatedAt   time.Time    // events.created_at
	UpdatedAt   time.Time    // events.updated_at
}

// TicketTier is a named ticket category with its own price and
// capacity.  The Sold counter is owned by the inventory ledger:
// nothing outside the ledger may change it.  Invariant: 0 <= Sold <=
// Quantity.
type TicketTier struct {
	EventID    uint64 // ticket_tiers.event_id
	Name       string // ticket_tiers.name (unique per event)
	PriceCents uint32 // ticket_tiers.price_cents
	Quantity   uint32 // ticket_tiers.quantity (capacity offered)
	Sold       uint32 // ticket_tiers.sold
}

// Remaining returns the number of unsold tickets in the tier.
func (t TicketTier) Remaining() uint32 {
	if t.Sold >= t.Quantity {
		return 0
	}
	return t.Quantity - t.Sold
}

// FindTier returns the tier with the given name, or nil when the
// event has no such tier.
func (e *Event) FindTier(name string) *TicketTier {
	for i := range e.Tiers {
		if e.Tiers[i].Name == name {
			return &e.Tiers[i]
		}
	}
	return nil
}
