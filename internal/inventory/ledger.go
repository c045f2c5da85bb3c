package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/daveteshome/tgshe/internal/domain"
)

// Ledger is the append-only record of stock movements. OUT moves are
// written by checkout inside its transaction; this type serves the
// operator surface: compensating IN moves and movement history.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordIn appends a compensating IN move and raises the stock counter
// in the same transaction. Existing OUT moves are never touched.
func (l *Ledger) RecordIn(ctx context.Context, tenantID, productID string, variantID *string, qty int, reason string) (*domain.InventoryMove, error) {
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var result sql.Result
	if variantID != nil {
		result, err = tx.ExecContext(ctx, `
			UPDATE product_variants SET stock = stock + $3
			WHERE id = $1 AND tenant_id = $2
		`, *variantID, tenantID, qty)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + $3, updated_at = NOW()
			WHERE id = $1 AND tenant_id = $2
		`, productID, tenantID, qty)
	}
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrProductUnavailable
	}

	move := &domain.InventoryMove{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		ProductID: productID,
		VariantID: variantID,
		Kind:      domain.MoveIn,
		Quantity:  qty,
		Reason:    reason,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO inventory_moves (id, tenant_id, product_id, variant_id, kind, quantity, reason)
		VALUES ($1, $2, $3, $4, 'IN', $5, $6)
		RETURNING created_at
	`, move.ID, tenantID, productID, variantID, qty, reason).Scan(&move.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return move, nil
}

// ListByProduct returns a product's movement history, newest first.
func (l *Ledger) ListByProduct(ctx context.Context, tenantID, productID string, limit int) ([]domain.InventoryMove, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, product_id, variant_id, order_id, order_item_id, kind, quantity, reason, created_at
		FROM inventory_moves
		WHERE tenant_id = $1 AND product_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, tenantID, productID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	moves := []domain.InventoryMove{}
	for rows.Next() {
		var m domain.InventoryMove
		if err := rows.Scan(&m.ID, &m.ProductID, &m.VariantID, &m.OrderID, &m.OrderItemID,
			&m.Kind, &m.Quantity, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.TenantID = tenantID
		moves = append(moves, m)
	}

	return moves, rows.Err()
}

// OutMoveExists reports whether an OUT move has been written for the
// given order line. Checkout relies on the unique index for the actual
// guarantee; this is the operator-facing check.
func (l *Ledger) OutMoveExists(ctx context.Context, orderID, orderItemID string) (bool, error) {
	var id string
	err := l.db.QueryRowContext(ctx, `
		SELECT id FROM inventory_moves
		WHERE order_id = $1 AND order_item_id = $2 AND kind = 'OUT'
	`, orderID, orderItemID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
