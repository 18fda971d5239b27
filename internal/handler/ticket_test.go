package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ticketloop/event-ticketing/internal/config"
	"github.com/ticketloop/event-ticketing/internal/gateway"
	"github.com/ticketloop/event-ticketing/internal/ledger"
	"github.com/ticketloop/event-ticketing/internal/model"
	"github.com/ticketloop/event-ticketing/internal/queue"
	"github.com/ticketloop/event-ticketing/internal/repository"
)

// fakeInventory implements ledger.TierStore and counts movements.
type fakeInventory struct {
	mu       sync.Mutex
	tier     model.TicketTier
	reserves int
	releases int
}

func (f *fakeInventory) ReserveTier(ctx context.Context, eventID uint64, tierName string, qty uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tierName != f.tier.Name || eventID != f.tier.EventID {
		return ledger.ErrTierNotFound
	}
	if f.tier.Sold+qty > f.tier.Quantity {
		return ledger.ErrInsufficientInventory
	}
	f.tier.Sold += qty
	f.reserves++
	return nil
}

func (f *fakeInventory) ReleaseTier(ctx context.Context, eventID uint64, tierName string, qty uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tierName != f.tier.Name || eventID != f.tier.EventID {
		return false, ledger.ErrTierNotFound
	}
	f.releases++
	if f.tier.Sold < qty {
		f.tier.Sold = 0
		return true, nil
	}
	f.tier.Sold -= qty
	return false, nil
}

// fakeTicketTx implements repository.TicketTx over in-memory state.
type fakeTicketTx struct {
	inv        *fakeInventory
	tickets    map[uint64]model.Ticket
	nextID     uint64
	statusSets map[uint64]string
	committed  bool
	rolledBack bool
}

func (f *fakeTicketTx) Tiers() ledger.TierStore { return f.inv }

func (f *fakeTicketTx) Tier(ctx context.Context, eventID uint64, tierName string) (model.TicketTier, error) {
	return f.inv.tier, nil
}

func (f *fakeTicketTx) CreateTicket(ctx context.Context, t *model.Ticket) error {
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	f.tickets[t.ID] = *t
	return nil
}

func (f *fakeTicketTx) TicketForUpdate(ctx context.Context, id uint64) (model.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return model.Ticket{}, repository.ErrTicketNotFound
	}
	return t, nil
}

func (f *fakeTicketTx) SetTicketStatus(ctx context.Context, id uint64, status string) error {
	t := f.tickets[id]
	t.Status = status
	f.tickets[id] = t
	f.statusSets[id] = status
	return nil
}

func (f *fakeTicketTx) Commit() error   { f.committed = true; return nil }
func (f *fakeTicketTx) Rollback() error { f.rolledBack = true; return nil }

type fakeTxStore struct{ tx *fakeTicketTx }

func (s *fakeTxStore) Begin(ctx context.Context) (repository.TicketTx, error) { return s.tx, nil }

type fakeEventGetter struct{ event *model.Event }

func (g *fakeEventGetter) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	if g.event == nil || g.event.ID != id {
		return nil, repository.ErrEventNotFound
	}
	return g.event, nil
}

type fakeTicketReader struct{}

func (fakeTicketReader) GetDetail(ctx context.Context, id uint64) (repository.TicketDetail, error) {
	return repository.TicketDetail{}, repository.ErrTicketNotFound
}
func (fakeTicketReader) ListByUser(ctx context.Context, userID uint64) ([]repository.TicketDetail, error) {
	return nil, nil
}

type fakePayments struct{}

func (fakePayments) CreateIntent(ctx context.Context, amountCents uint64, currency string, metadata map[string]string) (gateway.Intent, error) {
	return gateway.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

// newTicketFixture wires a TicketHandler over fakes: one published
// event with a single tier and, optionally, pre-existing tickets.
func newTicketFixture(tier model.TicketTier, tickets ...model.Ticket) (*TicketHandler, *fakeTicketTx, *fakeInventory) {
	inv := &fakeInventory{tier: tier}
	tx := &fakeTicketTx{
		inv:        inv,
		tickets:    make(map[uint64]model.Ticket),
		statusSets: make(map[uint64]string),
	}
	for _, t := range tickets {
		tx.tickets[t.ID] = t
		if t.ID > tx.nextID {
			tx.nextID = t.ID
		}
	}
	event := &model.Event{
		ID:          tier.EventID,
		OrganizerID: 900,
		Title:       "Go Conf",
		Status:      model.EventStatusPublished,
		Tiers:       []model.TicketTier{tier},
	}
	h := NewTicketHandler(
		config.Config{PaymentCurrency: "usd"},
		&fakeEventGetter{event: event},
		&fakeTxStore{tx: tx},
		fakeTicketReader{},
		ledger.New(nil),
		fakePayments{},
	)
	h.publishConfirmed = func(context.Context, queue.TicketConfirmedEvent) error { return nil }
	h.publishCancelled = func(context.Context, queue.TicketCancelledEvent) error { return nil }
	return h, tx, inv
}

func jsonRequest(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func cancelContext(ticketID, callerID uint64) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := jsonRequest(http.MethodPost, "/v1/tickets/"+strconv.FormatUint(ticketID, 10)+"/cancel", "{}")
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(ticketID, 10))
	c.Set("user_id", float64(callerID))
	return c, rec
}

func TestTicketCancel(t *testing.T) {
	tier := model.TicketTier{EventID: 1, Name: "General", PriceCents: 5000, Quantity: 100, Sold: 2}
	owned := model.Ticket{
		ID: 10, EventID: 1, UserID: 1, TierName: "General", Quantity: 2,
		TotalPriceCents: 10000, Status: model.TicketStatusConfirmed,
	}

	t.Run("non-owner is rejected and inventory untouched", func(t *testing.T) {
		h, tx, inv := newTicketFixture(tier, owned)
		c, rec := cancelContext(10, 2)
		if err := h.Cancel(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if inv.releases != 0 {
			t.Fatalf("release must not run for a foreign caller, got %d", inv.releases)
		}
		if inv.tier.Sold != 2 {
			t.Fatalf("sold changed: %d", inv.tier.Sold)
		}
		if len(tx.statusSets) != 0 {
			t.Fatalf("status must not change: %v", tx.statusSets)
		}
		if tx.committed || !tx.rolledBack {
			t.Fatalf("expected rollback without commit (committed=%v rolledBack=%v)", tx.committed, tx.rolledBack)
		}
	})

	t.Run("owner cancel releases inventory once", func(t *testing.T) {
		h, tx, inv := newTicketFixture(tier, owned)
		c, rec := cancelContext(10, 1)
		if err := h.Cancel(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if inv.releases != 1 || inv.tier.Sold != 0 {
			t.Fatalf("expected one release back to sold=0, got releases=%d sold=%d", inv.releases, inv.tier.Sold)
		}
		if tx.statusSets[10] != model.TicketStatusCancelled {
			t.Fatalf("status not persisted: %v", tx.statusSets)
		}
		if !tx.committed {
			t.Fatalf("expected commit")
		}
	})

	t.Run("second cancel conflicts without another release", func(t *testing.T) {
		cancelled := owned
		cancelled.Status = model.TicketStatusCancelled
		h, tx, inv := newTicketFixture(tier, cancelled)
		c, rec := cancelContext(10, 1)
		if err := h.Cancel(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if inv.releases != 0 {
			t.Fatalf("release must not run twice, got %d", inv.releases)
		}
		if tx.committed {
			t.Fatalf("double cancel must not commit")
		}
	})

	t.Run("unknown ticket is 404", func(t *testing.T) {
		h, _, _ := newTicketFixture(tier)
		c, rec := cancelContext(99, 1)
		if err := h.Cancel(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTicketPurchase(t *testing.T) {
	tier := model.TicketTier{EventID: 1, Name: "General", PriceCents: 5000, Quantity: 3}

	purchase := func(t *testing.T, h *TicketHandler, qty uint32) *httptest.ResponseRecorder {
		t.Helper()
		body := `{"event_id":1,"tier":"General","quantity":` + strconv.FormatUint(uint64(qty), 10) + `,"payment_intent_id":"pi_test"}`
		c, rec := jsonRequest(http.MethodPost, "/v1/tickets", body)
		c.Set("user_id", float64(5))
		if err := h.Purchase(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return rec
	}

	t.Run("reserve and insert share the transaction", func(t *testing.T) {
		h, tx, inv := newTicketFixture(tier)
		rec := purchase(t, h, 2)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if inv.reserves != 1 || inv.tier.Sold != 2 {
			t.Fatalf("expected one reserve to sold=2, got reserves=%d sold=%d", inv.reserves, inv.tier.Sold)
		}
		if len(tx.tickets) != 1 {
			t.Fatalf("expected one ticket, got %d", len(tx.tickets))
		}
		created := tx.tickets[1]
		if created.TotalPriceCents != 10000 || created.Status != model.TicketStatusConfirmed || created.UserID != 5 {
			t.Fatalf("unexpected ticket %+v", created)
		}
		if !tx.committed {
			t.Fatalf("expected commit")
		}
	})

	t.Run("over-capacity purchase rolls back without a ticket", func(t *testing.T) {
		h, tx, inv := newTicketFixture(tier)
		rec := purchase(t, h, 4)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if inv.tier.Sold != 0 {
			t.Fatalf("sold changed on failed purchase: %d", inv.tier.Sold)
		}
		if len(tx.tickets) != 0 {
			t.Fatalf("no ticket should exist, got %d", len(tx.tickets))
		}
		if tx.committed || !tx.rolledBack {
			t.Fatalf("expected rollback without commit")
		}
	})
}
