package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}

	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusConfirmed, OrderStatusShipped, OrderStatusCancelled},
		OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}

	for from, nexts := range allowed {
		want := map[OrderStatus]bool{}
		for _, n := range nexts {
			want[n] = true
		}
		for _, to := range all {
			got := from.CanTransitionTo(to)
			if got != want[to] {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestOrderStatusNoBackwardEdges(t *testing.T) {
	// pending is the entry state; nothing may return to it.
	for from := range validNext {
		if from.CanTransitionTo(OrderStatusPending) {
			t.Errorf("transition %s -> pending must not be allowed", from)
		}
	}
	if OrderStatusShipped.CanTransitionTo(OrderStatusConfirmed) {
		t.Error("shipped -> confirmed must not be allowed")
	}
	if OrderStatusDelivered.CanTransitionTo(OrderStatusShipped) {
		t.Error("delivered -> shipped must not be allowed")
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusDelivered: true,
		OrderStatusCancelled: true,
	}
	for s := range validNext {
		if s.Terminal() != terminal[s] {
			t.Errorf("Terminal(%s) = %v, want %v", s, s.Terminal(), terminal[s])
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	if !OrderStatusPending.Valid() {
		t.Error("pending should be valid")
	}
	if OrderStatus("paid").Valid() {
		t.Error("unknown status should not be valid")
	}
	if OrderStatus("paid").Terminal() {
		t.Error("unknown status should not be terminal")
	}
}
