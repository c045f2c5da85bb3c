package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// validNext is the full transition graph. Terminal statuses have an
// empty successor set; nothing ever moves backward.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {OrderStatusDelivered: true, OrderStatusCancelled: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return validNext[s][next]
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

type Order struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	UserID    string          `json:"user_id"`
	ShortCode string          `json:"short_code"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	AddressID *string         `json:"address_id,omitempty"`
	Note      *string         `json:"note,omitempty"`
	Items     []OrderItem     `json:"items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderItem is a snapshot taken at checkout. Title, variant name and
// unit price are copied from the catalog so later catalog edits do not
// rewrite order history.
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"order_id"`
	ProductID       string          `json:"product_id"`
	VariantID       *string         `json:"variant_id,omitempty"`
	TitleSnapshot   string          `json:"title"`
	VariantSnapshot *string         `json:"variant,omitempty"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	Currency        string          `json:"currency"`
}
