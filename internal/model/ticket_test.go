package model

import (
	"errors"
	"testing"
)

func TestTicket_Transition(t *testing.T) {
	t.Parallel()

	t.Run("confirmed to cancelled", func(t *testing.T) {
		tk := Ticket{Status: TicketStatusConfirmed}
		if err := tk.Cancel(); err != nil {
			t.Fatalf("expected cancel to succeed, got %v", err)
		}
		if tk.Status != TicketStatusCancelled {
			t.Fatalf("expected status CANCELLED, got %s", tk.Status)
		}
	})

	t.Run("double cancel rejected", func(t *testing.T) {
		tk := Ticket{Status: TicketStatusCancelled}
		err := tk.Cancel()
		if !errors.Is(err, ErrAlreadyCancelled) {
			t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
		}
		if tk.Status != TicketStatusCancelled {
			t.Fatalf("status must stay CANCELLED, got %s", tk.Status)
		}
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		tk := Ticket{Status: TicketStatusCancelled}
		if err := tk.Transition(TicketStatusConfirmed); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("pending may confirm or cancel", func(t *testing.T) {
		tk := Ticket{Status: TicketStatusPending}
		if err := tk.Transition(TicketStatusConfirmed); err != nil {
			t.Fatalf("pending->confirmed: %v", err)
		}
		tk = Ticket{Status: TicketStatusPending}
		if err := tk.Transition(TicketStatusCancelled); err != nil {
			t.Fatalf("pending->cancelled: %v", err)
		}
	})
}

func TestTicket_Authorization(t *testing.T) {
	t.Parallel()

	tk := Ticket{UserID: 7}

	if !tk.CancellableBy(7) {
		t.Fatalf("owner must be able to cancel")
	}
	if tk.CancellableBy(8) {
		t.Fatalf("non-owner must not be able to cancel")
	}
	if !tk.ViewableBy(7, RoleAttendee) {
		t.Fatalf("owner must be able to view")
	}
	if !tk.ViewableBy(99, RoleAdmin) {
		t.Fatalf("admin must be able to view")
	}
	if tk.ViewableBy(8, RoleAttendee) {
		t.Fatalf("stranger must not be able to view")
	}
}
