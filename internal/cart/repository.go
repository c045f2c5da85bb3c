package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daveteshome/tgshe/internal/domain"
)

// maxLineQuantity caps a single cart line regardless of stock.
const maxLineQuantity = 99

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreate returns the cart for (tenant, user), creating it lazily on
// first use. Carts are never deleted, only emptied.
func (r *Repository) GetOrCreate(ctx context.Context, tenantID, userID string) (string, error) {
	var cartID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO carts (id, tenant_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, uuid.New().String(), tenantID, userID).Scan(&cartID)
	if err != nil {
		return "", fmt.Errorf("get or create cart: %w", err)
	}
	return cartID, nil
}

// Get loads the cart with its lines, joined with live catalog titles.
func (r *Repository) Get(ctx context.Context, tenantID, userID string) (*domain.Cart, error) {
	cartID, err := r.GetOrCreate(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{ID: cartID, TenantID: tenantID, UserID: userID, Items: []domain.CartItem{}}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, ci.product_id, ci.variant_id, p.title, v.name,
		       ci.quantity, ci.unit_price, ci.currency, ci.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_variants v ON v.id = ci.variant_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`, cartID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.Title, &item.VariantName,
			&item.Quantity, &item.UnitPrice, &item.Currency, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CartID = cartID
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cart, nil
}

// Add puts qty units of (product, variant) into the user's cart. An
// existing line is incremented instead of duplicated; the resulting
// quantity is clamped to live stock and never exceeds it. The unit
// price is snapshotted from the catalog at add-time.
func (r *Repository) Add(ctx context.Context, tenantID, userID, productID string, variantID *string, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if qty > maxLineQuantity {
		qty = maxLineQuantity
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		price    decimal.Decimal
		currency string
		stock    int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT price, currency, stock
		FROM products
		WHERE id = $1 AND tenant_id = $2 AND active
	`, productID, tenantID).Scan(&price, &currency, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductUnavailable
	}
	if err != nil {
		return nil, err
	}

	if variantID != nil {
		var (
			priceDiff decimal.Decimal
			vstock    int
		)
		err = tx.QueryRowContext(ctx, `
			SELECT price_diff, stock
			FROM product_variants
			WHERE id = $1 AND product_id = $2 AND tenant_id = $3
		`, *variantID, productID, tenantID).Scan(&priceDiff, &vstock)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVariantNotFound
		}
		if err != nil {
			return nil, err
		}
		price = price.Add(priceDiff)
		stock = vstock
	}

	if stock < 1 {
		return nil, domain.ErrOutOfStock.WithMessage("product %s is out of stock", productID)
	}
	if qty > stock {
		qty = stock
	}

	cartID, err := r.getOrCreateTx(ctx, tx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	// Single-currency carts: an add in a different currency is rejected
	// rather than silently producing a mixed subtotal.
	var existingCurrency string
	err = tx.QueryRowContext(ctx, `
		SELECT currency FROM cart_items WHERE cart_id = $1 LIMIT 1
	`, cartID).Scan(&existingCurrency)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existingCurrency != "" && existingCurrency != currency {
		return nil, domain.ErrCurrencyMismatch
	}

	var (
		existingID  string
		existingQty int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, quantity
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		  AND COALESCE(variant_id, '00000000-0000-0000-0000-000000000000'::uuid)
		      = COALESCE($3::uuid, '00000000-0000-0000-0000-000000000000'::uuid)
	`, cartID, productID, variantID).Scan(&existingID, &existingQty)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (id, tenant_id, cart_id, product_id, variant_id, quantity, unit_price, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), tenantID, cartID, productID, variantID, qty, price, currency)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		newQty := existingQty + qty
		if newQty > stock {
			newQty = stock
		}
		if newQty > maxLineQuantity {
			newQty = maxLineQuantity
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE cart_items SET quantity = $2 WHERE id = $1
		`, existingID, newQty)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.Get(ctx, tenantID, userID)
}

// SetQuantity updates a line the caller owns. qty <= 0 removes the
// line; otherwise the new quantity is clamped to live stock.
func (r *Repository) SetQuantity(ctx context.Context, tenantID, userID, itemID string, qty int) (*domain.Cart, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Ownership is checked through the cart's tenant and user, not by
	// item id alone, so a caller cannot touch another user's lines.
	var (
		lineID    string
		productID string
		variantID *string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT ci.id, ci.product_id, ci.variant_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1 AND c.tenant_id = $2 AND c.user_id = $3
	`, itemID, tenantID, userID).Scan(&lineID, &productID, &variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCartItemNotFound
	}
	if err != nil {
		return nil, err
	}

	if qty <= 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID); err != nil {
			return nil, err
		}
	} else {
		var stock int
		if variantID != nil {
			err = tx.QueryRowContext(ctx, `SELECT stock FROM product_variants WHERE id = $1`, *variantID).Scan(&stock)
		} else {
			err = tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
		}
		if err != nil {
			return nil, err
		}

		if qty > stock {
			qty = stock
		}
		if qty > maxLineQuantity {
			qty = maxLineQuantity
		}
		if qty < 1 {
			// Stock dropped to zero since the line was added.
			if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID); err != nil {
				return nil, err
			}
		} else if _, err := tx.ExecContext(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, lineID, qty); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.Get(ctx, tenantID, userID)
}

// Remove deletes a line the caller owns.
func (r *Repository) Remove(ctx context.Context, tenantID, userID, itemID string) (*domain.Cart, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.tenant_id = $2 AND c.user_id = $3
	`, itemID, tenantID, userID)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrCartItemNotFound
	}

	return r.Get(ctx, tenantID, userID)
}

func (r *Repository) getOrCreateTx(ctx context.Context, tx *sql.Tx, tenantID, userID string) (string, error) {
	var cartID string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO carts (id, tenant_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, uuid.New().String(), tenantID, userID).Scan(&cartID)
	if err != nil {
		return "", fmt.Errorf("get or create cart: %w", err)
	}
	return cartID, nil
}
