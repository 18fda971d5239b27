package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ticketloop/event-ticketing/internal/model"
	"github.com/ticketloop/event-ticketing/internal/repository"
)

// PublicEventHandler serves the unauthenticated browse and detail
// endpoints.  Only PUBLISHED events are visible here.
type PublicEventHandler struct {
	Events *repository.EventRepo
}

func NewPublicEventHandler(events *repository.EventRepo) *PublicEventHandler {
	if events == nil {
		panic("nil repository passed to NewPublicEventHandler")
	}
	return &PublicEventHandler{Events: events}
}

// tierView is the tier shape returned on event detail responses.
type tierView struct {
	Name       string `json:"name"`
	PriceCents uint32 `json:"price_cents"`
	Quantity   uint32 `json:"quantity"`
	Remaining  uint32 `json:"remaining"`
}

type eventDetailResp struct {
	ID          uint64     `json:"id"`
	OrganizerID uint64     `json:"organizer_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartsAt    time.Time  `json:"starts_at"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"image_url"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	State       string     `json:"state"`
	Country     string     `json:"country"`
	Lat         *float64   `json:"lat"`
	Lng         *float64   `json:"lng"`
	Status      string     `json:"status"`
	Tiers       []tierView `json:"tiers"`
	CreatedAt   time.Time  `json:"created_at"`
}

func eventDetail(e *model.Event) eventDetailResp {
	tiers := make([]tierView, 0, len(e.Tiers))
	for _, t := range e.Tiers {
		tiers = append(tiers, tierView{
			Name:       t.Name,
			PriceCents: t.PriceCents,
			Quantity:   t.Quantity,
			Remaining:  t.Remaining(),
		})
	}
	return eventDetailResp{
		ID:          e.ID,
		OrganizerID: e.OrganizerID,
		Title:       e.Title,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		Category:    e.Category,
		ImageURL:    e.ImageURL,
		Address:     e.Address,
		City:        e.City,
		State:       e.State,
		Country:     e.Country,
		Lat:         e.Lat,
		Lng:         e.Lng,
		Status:      e.Status,
		Tiers:       tiers,
		CreatedAt:   e.CreatedAt,
	}
}

// List handles GET /v1/events with optional category, city, search and
// from filters plus page/limit pagination.
func (h *PublicEventHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	q := repository.EventSearchQuery{
		Category: strings.TrimSpace(c.QueryParam("category")),
		City:     strings.TrimSpace(c.QueryParam("city")),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Page:     page,
		PageSize: limit,
	}
	if raw := strings.TrimSpace(c.QueryParam("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			// Date-only filters are common from web clients.
			from, err = time.Parse("2006-01-02", raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
			}
		}
		q.From = &from
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Events.SearchPublished(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events": rows,
		"total":  total,
		"pages":  pages,
		"page":   page,
		"limit":  limit,
	})
}

// Get handles GET /v1/events/:id.  Non-published events are hidden
// from the public surface as if they did not exist.
func (h *PublicEventHandler) Get(c echo.Context) error {
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
	if e.Status != model.EventStatusPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, eventDetail(e))
}
