package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Category struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Position int    `json:"position"`
	Active   bool   `json:"active"`
}

type Product struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	CategoryID  *string         `json:"category_id,omitempty"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	SKU         *string         `json:"sku,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProductVariant overrides its parent's stock and shifts its price by
// PriceDiff. All stock invariants apply to the variant's own counter.
type ProductVariant struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	PriceDiff decimal.Decimal `json:"price_diff"`
	Stock     int             `json:"stock"`
}

func (v ProductVariant) EffectivePrice(base decimal.Decimal) decimal.Decimal {
	return base.Add(v.PriceDiff)
}
