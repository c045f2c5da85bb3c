package domain

import "fmt"

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindInternal
)

// Error is the typed error the transactional core raises. Transport
// layers map Kind to a response code and show Code/Message to callers.
type Error struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by code so detail-carrying copies still compare equal to
// their sentinel under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy carrying a call-site detail message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Code: e.Code, Kind: e.Kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrProductUnavailable = &Error{Code: "PRODUCT_UNAVAILABLE", Kind: KindNotFound, Message: "product not found or inactive"}
	ErrVariantNotFound    = &Error{Code: "VARIANT_NOT_FOUND", Kind: KindNotFound, Message: "variant does not belong to product"}
	ErrCartItemNotFound   = &Error{Code: "CART_ITEM_NOT_FOUND", Kind: KindNotFound, Message: "cart item not found"}
	ErrOrderNotFound      = &Error{Code: "ORDER_NOT_FOUND", Kind: KindNotFound, Message: "order not found"}
	ErrCartEmpty          = &Error{Code: "CART_EMPTY", Kind: KindConflict, Message: "cart is empty"}
	ErrOutOfStock         = &Error{Code: "OUT_OF_STOCK", Kind: KindConflict, Message: "insufficient stock"}
	ErrInvalidTransition  = &Error{Code: "INVALID_TRANSITION", Kind: KindConflict, Message: "status transition not allowed"}
	ErrCurrencyMismatch   = &Error{Code: "CURRENCY_MISMATCH", Kind: KindValidation, Message: "cart lines must share one currency"}
	ErrInvalidQuantity    = &Error{Code: "INVALID_QUANTITY", Kind: KindValidation, Message: "quantity must be a positive integer"}
	ErrAddressInvalid     = &Error{Code: "ADDRESS_INVALID", Kind: KindValidation, Message: "address is missing required fields"}
)
