package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ticketloop/event-ticketing/internal/config"
	"github.com/ticketloop/event-ticketing/internal/gateway"
	"github.com/ticketloop/event-ticketing/internal/ledger"
	"github.com/ticketloop/event-ticketing/internal/model"
	"github.com/ticketloop/event-ticketing/internal/queue"
	"github.com/ticketloop/event-ticketing/internal/repository"
	qp "github.com/ticketloop/event-ticketing/internal/service"
)

// eventGetter is the slice of the event store the purchase flow needs.
type eventGetter interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// ticketTxStore opens purchase/cancel transactions.
// *repository.TxStore satisfies it; tests use fakes.
type ticketTxStore interface {
	Begin(ctx context.Context) (repository.TicketTx, error)
}

// ticketReader serves the read-only listing and detail endpoints.
type ticketReader interface {
	GetDetail(ctx context.Context, id uint64) (repository.TicketDetail, error)
	ListByUser(ctx context.Context, userID uint64) ([]repository.TicketDetail, error)
}

// paymentIntenter opens intents with the payment provider.
type paymentIntenter interface {
	CreateIntent(ctx context.Context, amountCents uint64, currency string, metadata map[string]string) (gateway.Intent, error)
}

// TicketHandler implements the two-step purchase flow (payment intent
// then confirmed ticket) plus listing, detail and cancellation.  All
// inventory movement funnels through the ledger inside a single
// database transaction per request, so a crash between steps can never
// leak sold tickets.
type TicketHandler struct {
	Cfg      config.Config
	Events   eventGetter
	Store    ticketTxStore
	Tickets  ticketReader
	Ledger   *ledger.Ledger
	Payments paymentIntenter

	// Broker publishers, injected so tests can observe or silence them.
	publishConfirmed func(context.Context, queue.TicketConfirmedEvent) error
	publishCancelled func(context.Context, queue.TicketCancelledEvent) error
}

func NewTicketHandler(cfg config.Config, events eventGetter, store ticketTxStore, tickets ticketReader, led *ledger.Ledger, payments paymentIntenter) *TicketHandler {
	if events == nil || store == nil || tickets == nil || led == nil || payments == nil {
		panic("nil dependency passed to NewTicketHandler")
	}
	return &TicketHandler{
		Cfg:              cfg,
		Events:           events,
		Store:            store,
		Tickets:          tickets,
		Ledger:           led,
		Payments:         payments,
		publishConfirmed: qp.PublishTicketConfirmed,
		publishCancelled: qp.PublishTicketCancelled,
	}
}

// ----- DTOs -----

type intentReq struct {
	EventID  uint64 `json:"event_id"`
	Tier     string `json:"tier"`
	Quantity uint32 `json:"quantity"`
}

type purchaseReq struct {
	EventID         uint64 `json:"event_id"`
	Tier            string `json:"tier"`
	Quantity        uint32 `json:"quantity"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// loadPurchasableTier fetches the event and the named tier, hiding
// non-published events from buyers.  Returns a status and message for
// the error response when the pair cannot be purchased.
func (h *TicketHandler) loadPurchasableTier(ctx context.Context, eventID uint64, tierName string) (*model.Event, *model.TicketTier, int, string) {
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return nil, nil, http.StatusNotFound, "event not found"
		}
		return nil, nil, http.StatusInternalServerError, "load event failed"
	}
	if e.Status != model.EventStatusPublished {
		return nil, nil, http.StatusNotFound, "event not found"
	}
	t := e.FindTier(tierName)
	if t == nil {
		return nil, nil, http.StatusNotFound, "ticket tier not found"
	}
	return e, t, 0, ""
}

// PaymentIntent handles POST /v1/tickets/payment-intent.  It verifies
// availability and opens an intent with the payment provider; no
// inventory is reserved until the purchase is confirmed.
func (h *TicketHandler) PaymentIntent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req intentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Tier = strings.TrimSpace(req.Tier)
	if req.EventID == 0 || req.Tier == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and tier required"})
	}
	if req.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	_, tier, status, msg := h.loadPurchasableTier(ctx, req.EventID, req.Tier)
	if msg != "" {
		return c.JSON(status, echo.Map{"error": msg})
	}
	// Advisory check only; the authoritative check happens at reserve
	// time in the purchase transaction.
	if tier.Remaining() < req.Quantity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not enough tickets available"})
	}

	amount := uint64(tier.PriceCents) * uint64(req.Quantity)
	intent, err := h.Payments.CreateIntent(ctx, amount, h.Cfg.PaymentCurrency, map[string]string{
		"event_id": strconv.FormatUint(req.EventID, 10),
		"tier":     req.Tier,
		"quantity": strconv.FormatUint(uint64(req.Quantity), 10),
		"user_id":  strconv.FormatUint(uid, 10),
	})
	if err != nil {
		var ue *gateway.UpstreamError
		if errors.As(err, &ue) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider rejected the request"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount_cents":      amount,
		"currency":          h.Cfg.PaymentCurrency,
	})
}

// Purchase handles POST /v1/tickets.  The reserve and the ticket
// insert share one transaction: either both commit or neither does.
func (h *TicketHandler) Purchase(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Tier = strings.TrimSpace(req.Tier)
	req.PaymentIntentID = strings.TrimSpace(req.PaymentIntentID)
	if req.EventID == 0 || req.Tier == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and tier required"})
	}
	if req.Quantity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	}
	if req.PaymentIntentID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_intent_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	event, _, status, msg := h.loadPurchasableTier(ctx, req.EventID, req.Tier)
	if msg != "" {
		return c.JSON(status, echo.Map{"error": msg})
	}

	tx, err := h.Store.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := h.Ledger.Reserve(ctx, tx.Tiers(), req.EventID, req.Tier, req.Quantity); err != nil {
		switch err {
		case ledger.ErrTierNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket tier not found"})
		case ledger.ErrInsufficientInventory:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "not enough tickets available"})
		case ledger.ErrInvalidQuantity:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reserve failed"})
	}

	// Price from the locked row so the recorded total matches what the
	// reserve just claimed.
	tier, err := tx.Tier(ctx, req.EventID, req.Tier)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load tier failed"})
	}

	ticket := model.Ticket{
		EventID:         req.EventID,
		UserID:          uid,
		TierName:        req.Tier,
		Quantity:        req.Quantity,
		TotalPriceCents: uint64(tier.PriceCents) * uint64(req.Quantity),
		Status:          model.TicketStatusConfirmed,
		PaymentIntentID: req.PaymentIntentID,
	}
	if err := tx.CreateTicket(ctx, &ticket); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create ticket failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	// Best effort: a broker outage must not fail a paid purchase.
	go func(ev queue.TicketConfirmedEvent) {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		_ = h.publishConfirmed(pubCtx, ev)
	}(queue.TicketConfirmedEvent{
		TicketID:        ticket.ID,
		UserID:          uid,
		EventID:         event.ID,
		EventTitle:      event.Title,
		TierName:        ticket.TierName,
		Quantity:        ticket.Quantity,
		TotalPriceCents: ticket.TotalPriceCents,
		PaymentIntentID: ticket.PaymentIntentID,
		ConfirmedAt:     ticket.CreatedAt.UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"id":                ticket.ID,
		"event_id":          ticket.EventID,
		"tier":              ticket.TierName,
		"quantity":          ticket.Quantity,
		"total_price_cents": ticket.TotalPriceCents,
		"status":            ticket.Status,
		"payment_intent_id": ticket.PaymentIntentID,
		"created_at":        ticket.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// List handles GET /v1/tickets: the caller's tickets, newest first.
func (h *TicketHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tickets failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// Get handles GET /v1/tickets/:id.  Visible to the owner and admins.
func (h *TicketHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Tickets.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket failed"})
	}
	t := model.Ticket{UserID: d.UserID}
	if !t.ViewableBy(uid, getRole(c)) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel handles POST /v1/tickets/:id/cancel.  The status flip and the
// inventory release share one transaction; cancelling twice yields 409.
// Only the ticket owner may cancel; a foreign caller is rejected before
// any inventory is touched.
func (h *TicketHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req cancelReq
	_ = c.Bind(&req) // reason is optional

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Store.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ticket, err := tx.TicketForUpdate(ctx, id)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket failed"})
	}
	if !ticket.CancellableBy(uid) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := ticket.Cancel(); err != nil {
		if err == model.ErrAlreadyCancelled {
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already cancelled"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "ticket cannot be cancelled"})
	}

	if err := h.Ledger.Release(ctx, tx.Tiers(), ticket.EventID, ticket.TierName, ticket.Quantity); err != nil {
		if err == ledger.ErrTierNotFound {
			// The tier was reshaped away after purchase; the cancel
			// still stands, there is just no inventory to return.
		} else {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "release failed"})
		}
	}

	if err := tx.SetTicketStatus(ctx, ticket.ID, ticket.Status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update ticket failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	go func(ev queue.TicketCancelledEvent) {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		_ = h.publishCancelled(pubCtx, ev)
	}(queue.TicketCancelledEvent{
		TicketID:    ticket.ID,
		UserID:      uid,
		EventID:     ticket.EventID,
		TierName:    ticket.TierName,
		Quantity:    ticket.Quantity,
		CancelledAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"id":     ticket.ID,
		"status": ticket.Status,
	})
}
