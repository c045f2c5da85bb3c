package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daveteshome/tgshe/internal/domain"
)

// Orchestrator converts a mutable cart (or one ad-hoc line) into an
// immutable order. All of the work, from stock validation through the
// guarded decrement and ledger writes to clearing the cart, happens in
// one transaction, so an abort leaves no trace.
type Orchestrator struct {
	db *sql.DB
}

func NewOrchestrator(db *sql.DB) *Orchestrator {
	return &Orchestrator{db: db}
}

type line struct {
	productID   string
	variantID   *string
	title       string
	variantName *string
	unitPrice   decimal.Decimal
	quantity    int
	currency    string
}

// FromCart checks out the caller's whole cart. The cart's lines are
// consumed in ascending (product, variant) order so concurrent
// checkouts touching overlapping products decrement in the same order
// and cannot deadlock each other.
func (o *Orchestrator) FromCart(ctx context.Context, tenantID, userID string, address *domain.Address, note *string) (*domain.Order, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var cartID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM carts WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartEmpty
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT ci.product_id, ci.variant_id, p.title, v.name, ci.unit_price, ci.quantity, ci.currency
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_variants v ON v.id = ci.variant_id
		WHERE ci.cart_id = $1
		ORDER BY ci.product_id, ci.variant_id
	`, cartID)
	if err != nil {
		return nil, err
	}

	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.variantID, &l.title, &l.variantName, &l.unitPrice, &l.quantity, &l.currency); err != nil {
			_ = rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(lines) == 0 {
		return nil, domain.ErrCartEmpty
	}

	order, err := o.createOrderTx(ctx, tx, tenantID, userID, lines, address, note)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

// BuyNow checks out a single ad-hoc line without touching the cart.
// The price is taken from the live catalog at the instant of the call.
func (o *Orchestrator) BuyNow(ctx context.Context, tenantID, userID, productID string, variantID *string, qty int, address *domain.Address, note *string) (*domain.Order, error) {
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	l := line{productID: productID, variantID: variantID, quantity: qty}
	err = tx.QueryRowContext(ctx, `
		SELECT title, price, currency
		FROM products
		WHERE id = $1 AND tenant_id = $2 AND active
	`, productID, tenantID).Scan(&l.title, &l.unitPrice, &l.currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductUnavailable
	}
	if err != nil {
		return nil, err
	}

	if variantID != nil {
		var (
			name      string
			priceDiff decimal.Decimal
		)
		err = tx.QueryRowContext(ctx, `
			SELECT name, price_diff
			FROM product_variants
			WHERE id = $1 AND product_id = $2 AND tenant_id = $3
		`, *variantID, productID, tenantID).Scan(&name, &priceDiff)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVariantNotFound
		}
		if err != nil {
			return nil, err
		}
		l.variantName = &name
		l.unitPrice = l.unitPrice.Add(priceDiff)
	}

	order, err := o.createOrderTx(ctx, tx, tenantID, userID, []line{l}, address, note)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

// createOrderTx runs steps 3-5 of the checkout inside the caller's
// transaction: totals from the stored price snapshots, the order and
// item snapshot rows, then one guarded decrement plus one OUT ledger
// move per line. Any failing line aborts the whole thing.
func (o *Orchestrator) createOrderTx(ctx context.Context, tx *sql.Tx, tenantID, userID string, lines []line, address *domain.Address, note *string) (*domain.Order, error) {
	var addressID *string
	if address != nil {
		if err := address.Validate(); err != nil {
			return nil, err
		}
		id, err := upsertAddressTx(ctx, tx, tenantID, userID, *address)
		if err != nil {
			return nil, err
		}
		addressID = &id
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	currency := lines[0].currency

	order := &domain.Order{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Status:    domain.OrderStatusPending,
		Total:     total,
		Currency:  currency,
		AddressID: addressID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}
	order.ShortCode = ShortCode(order.ID)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, tenant_id, user_id, short_code, status, total, currency, address_id, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, order.ID, tenantID, userID, order.ShortCode, order.Status, order.Total, order.Currency, addressID, note, order.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		item := domain.OrderItem{
			ID:              uuid.New().String(),
			OrderID:         order.ID,
			ProductID:       l.productID,
			VariantID:       l.variantID,
			TitleSnapshot:   l.title,
			VariantSnapshot: l.variantName,
			UnitPrice:       l.unitPrice,
			Quantity:        l.quantity,
			Currency:        l.currency,
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_id, title_snapshot, variant_snapshot, unit_price, quantity, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, item.ID, item.OrderID, item.ProductID, item.VariantID, item.TitleSnapshot, item.VariantSnapshot, item.UnitPrice, item.Quantity, item.Currency)
		if err != nil {
			return nil, err
		}

		if err := decrementStockTx(ctx, tx, tenantID, l); err != nil {
			return nil, err
		}

		// Idempotency anchor: the partial unique index on
		// (order_id, order_item_id) makes a replayed decrement a no-op.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory_moves (id, tenant_id, product_id, variant_id, order_id, order_item_id, kind, quantity, reason)
			VALUES ($1, $2, $3, $4, $5, $6, 'OUT', $7, $8)
			ON CONFLICT (order_id, order_item_id) WHERE kind = 'OUT' DO NOTHING
		`, uuid.New().String(), tenantID, l.productID, l.variantID, order.ID, item.ID, l.quantity, fmt.Sprintf("order %s", order.ID))
		if err != nil {
			return nil, err
		}

		order.Items = append(order.Items, item)
	}

	return order, nil
}

// decrementStockTx performs the conditional decrement that keeps stock
// non-negative under concurrent buyers. Zero rows affected means the
// line lost a stock race or the product went away; either way the
// whole checkout aborts.
func decrementStockTx(ctx context.Context, tx *sql.Tx, tenantID string, l line) error {
	var (
		result sql.Result
		err    error
	)
	if l.variantID != nil {
		result, err = tx.ExecContext(ctx, `
			UPDATE product_variants v
			SET stock = stock - $3
			WHERE v.id = $1 AND v.tenant_id = $2 AND v.stock >= $3
			  AND EXISTS (SELECT 1 FROM products p WHERE p.id = v.product_id AND p.active)
		`, *l.variantID, tenantID, l.quantity)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $3, updated_at = NOW()
			WHERE id = $1 AND tenant_id = $2 AND active AND stock >= $3
		`, l.productID, tenantID, l.quantity)
	}
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Shape the error: a missing or deactivated product is reported
	// differently from a plain stock shortage.
	var active bool
	err = tx.QueryRowContext(ctx, `
		SELECT active FROM products WHERE id = $1 AND tenant_id = $2
	`, l.productID, tenantID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return domain.ErrProductUnavailable.WithMessage("product %q is no longer available", l.title)
	}
	if err != nil {
		return err
	}

	return domain.ErrOutOfStock.WithMessage("insufficient stock for %q", l.title)
}

func upsertAddressTx(ctx context.Context, tx *sql.Tx, tenantID, userID string, a domain.Address) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO addresses (id, tenant_id, user_id, label, line1, line2, city, region, country, postal_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, user_id, label) DO UPDATE SET
			line1 = EXCLUDED.line1,
			line2 = EXCLUDED.line2,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			country = EXCLUDED.country,
			postal_code = EXCLUDED.postal_code
		RETURNING id
	`, uuid.New().String(), tenantID, userID, a.Label, a.Line1, a.Line2, a.City, a.Region, a.Country, a.PostalCode, a.IsDefault).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert address: %w", err)
	}
	return id, nil
}
