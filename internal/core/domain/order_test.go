package domain

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, name := range []string{"Pending", "Processing", "Shipped", "Delivered", "Cancelled"} {
		if _, err := ParseOrderStatus(name); err != nil {
			t.Errorf("expected %q to parse, got %v", name, err)
		}
	}

	if _, err := ParseOrderStatus("Refunded"); err != ErrInvalidStatus {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := ParseOrderStatus("pending"); err != ErrInvalidStatus {
		t.Errorf("status names are case sensitive, got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !OrderStatusDelivered.IsTerminal() {
		t.Error("Delivered should be terminal")
	}
	if !OrderStatusCancelled.IsTerminal() {
		t.Error("Cancelled should be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Error("Pending should not be terminal")
	}
}

func TestCanBeCancelled(t *testing.T) {
	for status, want := range map[OrderStatus]bool{
		OrderStatusPending:    true,
		OrderStatusProcessing: true,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  false,
		OrderStatusCancelled:  false,
	} {
		o := &Order{Status: status}
		if o.CanBeCancelled() != want {
			t.Errorf("CanBeCancelled in %s: expected %v", status, want)
		}
	}
}
