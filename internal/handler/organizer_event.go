package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ticketloop/event-ticketing/internal/ledger"
	"github.com/ticketloop/event-ticketing/internal/model"
	"github.com/ticketloop/event-ticketing/internal/repository"
)

// eventStore is the event persistence surface the organizer handler
// needs.  *repository.EventRepo satisfies it; tests use fakes.
type eventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	Update(ctx context.Context, organizerID uint64, e *model.Event) error
	Delete(ctx context.Context, organizerID, eventID uint64) error
	ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error)
}

// eventTicketLister provides the tickets of an event for statistics.
type eventTicketLister interface {
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error)
}

// OrganizerEventHandler bundles the stores organizers use to manage
// their events and read sales statistics.
type OrganizerEventHandler struct {
	Events  eventStore
	Tickets eventTicketLister
}

func NewOrganizerEventHandler(events eventStore, tickets eventTicketLister) *OrganizerEventHandler {
	if events == nil || tickets == nil {
		panic("nil store passed to NewOrganizerEventHandler")
	}
	return &OrganizerEventHandler{Events: events, Tickets: tickets}
}

// ----- DTOs -----

type tierReq struct {
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
	Quantity   uint32 `json:"quantity"`
}

type eventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	Lat         *float64  `json:"lat"`
	Lng         *float64  `json:"lng"`
	Status      string    `json:"status"`
	Tiers       []tierReq `json:"tiers"`
}

// toModel validates the request and converts it into a model.Event.
// Returns a message suitable for a 400 response when invalid.
func (req *eventReq) toModel() (*model.Event, string) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, "title required"
	}
	if req.StartsAt.IsZero() {
		return nil, "starts_at required"
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		status = model.EventStatusDraft
	}
	switch status {
	case model.EventStatusDraft, model.EventStatusPublished, model.EventStatusCancelled:
	default:
		return nil, "invalid status"
	}
	if len(req.Tiers) == 0 {
		return nil, "at least one ticket tier required"
	}
	seen := make(map[string]bool, len(req.Tiers))
	tiers := make([]model.TicketTier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, "tier name required"
		}
		if seen[name] {
			return nil, "duplicate tier name: " + name
		}
		seen[name] = true
		if t.Quantity == 0 {
			return nil, "tier quantity must be positive"
		}
		tiers = append(tiers, model.TicketTier{
			Name:       name,
			PriceCents: t.PriceCents,
			Quantity:   t.Quantity,
		})
	}
	return &model.Event{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Country:     req.Country,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Status:      status,
		Tiers:       tiers,
	}, ""
}

// Create handles POST /v1/events.
func (h *OrganizerEventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	e, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	e.OrganizerID = uid

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Create(ctx, e); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, eventDetail(e))
}

// Update handles PUT /v1/events/:id.  The whole event is replaced;
// tier sold counters are carried over by name inside the repository.
func (h *OrganizerEventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	e, msg := req.toModel()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	e.ID = id
	e.OrganizerID = uid

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Update(ctx, uid, e); err != nil {
		switch err {
		case repository.ErrEventNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "tier change conflicts with sold tickets"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}

	fresh, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, eventDetail(fresh))
}

// Delete handles DELETE /v1/events/:id.  Deleting is refused while
// confirmed tickets exist for the event.
func (h *OrganizerEventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Delete(ctx, uid, id); err != nil {
		switch err {
		case repository.ErrEventNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "event has confirmed tickets"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/organizer/events: all events owned by the
// caller regardless of status.
func (h *OrganizerEventHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListByOrganizer(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventDetailResp, 0, len(events))
	for i := range events {
		out = append(out, eventDetail(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Stats handles GET /v1/events/:id/stats.  Revenue and sold counts are
// derived from confirmed tickets at their purchase-time prices.
func (h *OrganizerEventHandler) Stats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	// Statistics are visible only to the organizer who owns the event.
	if e.OrganizerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your event"})
	}

	orders, err := h.Tickets.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load tickets failed"})
	}
	return c.JSON(http.StatusOK, ledger.ComputeStats(e.Tiers, orders))
}
