package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	detailed := ErrOutOfStock.WithMessage("insufficient stock for %q (have %d, need %d)", "Classic T-Shirt", 1, 2)

	if !errors.Is(detailed, ErrOutOfStock) {
		t.Error("detail copy should match its sentinel")
	}
	if errors.Is(detailed, ErrCartEmpty) {
		t.Error("distinct codes must not match")
	}

	wrapped := fmt.Errorf("checkout: %w", detailed)
	if !errors.Is(wrapped, ErrOutOfStock) {
		t.Error("wrapped error should still match the sentinel")
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := ErrCartEmpty
	if err.Error() != "CART_EMPTY: cart is empty" {
		t.Errorf("unexpected Error(): %s", err.Error())
	}
}

func TestAddressValidate(t *testing.T) {
	valid := Address{Label: "Home", Line1: "Bole, Woreda 03", City: "Addis Ababa", Country: "Ethiopia"}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid address, got %v", err)
	}

	missing := Address{Label: "Home", City: "Addis Ababa"}
	if !errors.Is(missing.Validate(), ErrAddressInvalid) {
		t.Error("expected ADDRESS_INVALID for missing line1/country")
	}
}
