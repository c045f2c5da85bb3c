package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is created lazily on first mutation and scoped to one
// (tenant, user). It is never deleted, only emptied.
type Cart struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

type CartItem struct {
	ID          string          `json:"id"`
	CartID      string          `json:"cart_id"`
	ProductID   string          `json:"product_id"`
	VariantID   *string         `json:"variant_id,omitempty"`
	Title       string          `json:"title"`
	VariantName *string         `json:"variant_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// Subtotal sums the line totals of all items. Carts are single-currency,
// so the result carries the currency of the first line.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (c Cart) Currency() string {
	if len(c.Items) == 0 {
		return ""
	}
	return c.Items[0].Currency
}
