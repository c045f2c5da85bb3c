package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCartSubtotal(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("10.00"), Currency: "ETB"},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("5.00"), Currency: "ETB"},
		},
	}

	if got := cart.Subtotal(); !got.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("Subtotal() = %s, want 25.00", got)
	}
	if got := cart.Currency(); got != "ETB" {
		t.Errorf("Currency() = %q, want ETB", got)
	}
}

func TestCartSubtotalEmpty(t *testing.T) {
	cart := Cart{}
	if got := cart.Subtotal(); !got.IsZero() {
		t.Errorf("Subtotal() of empty cart = %s, want 0", got)
	}
	if got := cart.Currency(); got != "" {
		t.Errorf("Currency() of empty cart = %q, want empty", got)
	}
}

func TestCartItemLineTotal(t *testing.T) {
	it := CartItem{Quantity: 3, UnitPrice: decimal.RequireFromString("799.00")}
	if got := it.LineTotal(); !got.Equal(decimal.RequireFromString("2397.00")) {
		t.Errorf("LineTotal() = %s, want 2397.00", got)
	}
}
