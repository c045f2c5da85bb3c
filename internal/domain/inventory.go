package domain

import "time"

type MoveKind string

const (
	MoveIn  MoveKind = "IN"
	MoveOut MoveKind = "OUT"
)

// InventoryMove is an append-only ledger entry. A wrong OUT is never
// deleted; the correction is a new compensating IN move.
type InventoryMove struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	ProductID   string    `json:"product_id"`
	VariantID   *string   `json:"variant_id,omitempty"`
	OrderID     *string   `json:"order_id,omitempty"`
	OrderItemID *string   `json:"order_item_id,omitempty"`
	Kind        MoveKind  `json:"kind"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}
