package ledger

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/ticketloop/event-ticketing/internal/model"
)

// fakeTierStore implements TierStore in memory with the same
// conditional semantics the SQL implementation provides: the check
// and the increment happen under one lock, so concurrent reserves
// observe a consistent counter.
type fakeTierStore struct {
	mu    sync.Mutex
	tiers map[string]*model.TicketTier
}

func newFakeTierStore(tiers ...model.TicketTier) *fakeTierStore {
	s := &fakeTierStore{tiers: make(map[string]*model.TicketTier, len(tiers))}
	for i := range tiers {
		t := tiers[i]
		s.tiers[t.Name] = &t
	}
	return s
}

func (s *fakeTierStore) ReserveTier(_ context.Context, _ uint64, tierName string, qty uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiers[tierName]
	if !ok {
		return ErrTierNotFound
	}
	if t.Sold+qty > t.Quantity {
		return ErrInsufficientInventory
	}
	t.Sold += qty
	return nil
}

func (s *fakeTierStore) ReleaseTier(_ context.Context, _ uint64, tierName string, qty uint32) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiers[tierName]
	if !ok {
		return false, ErrTierNotFound
	}
	if t.Sold < qty {
		t.Sold = 0
		return true, nil
	}
	t.Sold -= qty
	return false, nil
}

func (s *fakeTierStore) sold(name string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tiers[name].Sold
}

func TestLedger_Reserve(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("increments sold within capacity", func(t *testing.T) {
		store := newFakeTierStore(model.TicketTier{Name: "GA", PriceCents: 2000, Quantity: 10})
		l := New(nil)

		res, err := l.Reserve(ctx, store, 1, "GA", 3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Quantity != 3 || res.TierName != "GA" {
			t.Fatalf("unexpected reservation %+v", res)
		}
		if got := store.sold("GA"); got != 3 {
			t.Fatalf("expected sold=3, got %d", got)
		}
	})

	t.Run("rejects when capacity exceeded and leaves state unchanged", func(t *testing.T) {
		store := newFakeTierStore(model.TicketTier{Name: "GA", PriceCents: 2000, Quantity: 10, Sold: 3})
		l := New(nil)

		_, err := l.Reserve(ctx, store, 1, "GA", 8)
		if !errors.Is(err, ErrInsufficientInventory) {
			t.Fatalf("expected ErrInsufficientInventory, got %v", err)
		}
		if got := store.sold("GA"); got != 3 {
			t.Fatalf("expected sold unchanged at 3, got %d", got)
		}
	})

	t.Run("exact remaining quantity succeeds", func(t *testing.T) {
		store := newFakeTierStore(model.TicketTier{Name: "GA", Quantity: 10, Sold: 4})
		l := New(nil)

		if _, err := l.Reserve(ctx, store, 1, "GA", 6); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := store.sold("GA"); got != 10 {
			t.Fatalf("expected sold=10, got %d", got)
		}
	})

	t.Run("unknown tier", func(t *testing.T) {
		store := newFakeTierStore(model.TicketTier{Name: "GA", Quantity: 10})
		l := New(nil)

		_, err := l.Reserve(ctx, store, 1, "VIP", 1)
		if !errors.Is(err, ErrTierNotFound) {
			t.Fatalf("expected ErrTierNotFound, got %v", err)
		}
	})

	t.Run("zero quantity rejected before store access", func(t *testing.T) {
		l := New(nil)
		_, err := l.Reserve(ctx, nil, 1, "GA", 0)
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

func TestLedger_Release(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("release then reserve round-trips", func(t *testing.T) {
		store := newFakeTierStore(model.TicketTier{Name: "GA", Quantity: 10, Sold: 3})
		l := New(nil)

		if err := l.Release(ctx, store, 1, "GA", 3); err != nil {
			t.Fatalf("release: %v", err)
		}
		if got := store.sold("GA"); got != 0 {
			t.Fatalf("expected sold=0 after release, got %d", got)
		}
		if _, err := l.Reserve(ctx, store, 1, "GA", 3); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if got := store.sold("GA"); got != 3 {
			t.Fatalf("expected sold restored to 3, got %d", got)
		}
	})

	t.Run("floored release logs a warning", func(t *testing.T) {
		store := newFakeTierStore(model.TicketTier{Name: "GA", Quantity: 10, Sold: 2})
		var buf strings.Builder
		l := New(log.New(&buf, "", 0))

		if err := l.Release(ctx, store, 1, "GA", 5); err != nil {
			t.Fatalf("release: %v", err)
		}
		if got := store.sold("GA"); got != 0 {
			t.Fatalf("expected sold floored at 0, got %d", got)
		}
		if !strings.Contains(buf.String(), "clamped at zero") {
			t.Fatalf("expected warning log, got %q", buf.String())
		}
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		l := New(nil)
		if err := l.Release(ctx, nil, 1, "GA", 0); !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})
}

// TestLedger_ConcurrentReserve drives many concurrent single-ticket
// reserves against a small tier and checks that exactly capacity
// reserves succeed and the rest fail with ErrInsufficientInventory.
func TestLedger_ConcurrentReserve(t *testing.T) {
	t.Parallel()

	const capacity = 25
	const callers = 200

	store := newFakeTierStore(model.TicketTier{Name: "GA", Quantity: capacity})
	l := New(nil)

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Reserve(context.Background(), store, 1, "GA", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientInventory):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != capacity {
		t.Fatalf("expected exactly %d successful reserves, got %d", capacity, ok)
	}
	if insufficient != callers-capacity {
		t.Fatalf("expected %d rejections, got %d", callers-capacity, insufficient)
	}
	if got := store.sold("GA"); got != capacity {
		t.Fatalf("expected sold=%d, got %d", capacity, got)
	}
}
