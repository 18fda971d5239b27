package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

func readTicketLog(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("logs", "ticket.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(b)
}

func TestHandleConfirmedWritesLog(t *testing.T) {
	chdirTemp(t)

	body, _ := json.Marshal(TicketConfirmedEvent{
		TicketID:        7,
		UserID:          3,
		EventID:         12,
		EventTitle:      "Jazz Night",
		TierName:        "VIP",
		Quantity:        2,
		TotalPriceCents: 10000,
		PaymentIntentID: "pi_test_123",
		ConfirmedAt:     "2026-09-01T10:00:00Z",
	})
	if err := handleConfirmed(body); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := readTicketLog(t)
	for _, want := range []string{"Ticket confirmed", "ticket_id=7", "event=\"Jazz Night\"", "total=10000 cents", "intent=pi_test_123"} {
		if !strings.Contains(got, want) {
			t.Fatalf("log line missing %q: %s", want, got)
		}
	}
}

func TestHandleCancelledWritesLog(t *testing.T) {
	chdirTemp(t)

	body, _ := json.Marshal(TicketCancelledEvent{
		TicketID:    9,
		UserID:      3,
		EventID:     12,
		TierName:    "GA",
		Quantity:    1,
		CancelledAt: "2026-09-01T11:00:00Z",
	})
	if err := handleCancelled(body); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := readTicketLog(t)
	for _, want := range []string{"Ticket cancelled", "ticket_id=9", "tier=\"GA\"", "qty=1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("log line missing %q: %s", want, got)
		}
	}
}

func TestHandleMalformedBody(t *testing.T) {
	chdirTemp(t)

	if err := handleConfirmed([]byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error for confirmed payload")
	}
	if err := handleCancelled([]byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error for cancelled payload")
	}
	if _, err := os.Stat(filepath.Join("logs", "ticket.log")); !os.IsNotExist(err) {
		t.Fatalf("malformed payload must not create a log entry")
	}
}
