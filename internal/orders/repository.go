package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/daveteshome/tgshe/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SetStatus applies one transition of the status machine. The current
// status is read under FOR UPDATE so two operators acting on the same
// order serialize instead of losing an update; an illegal edge fails
// INVALID_TRANSITION and leaves the order untouched. Stock was already
// decremented at checkout, so no inventory work happens here.
func (r *Repository) SetStatus(ctx context.Context, tenantID, orderID string, next domain.OrderStatus) (*domain.Order, domain.OrderStatus, error) {
	if !next.Valid() {
		return nil, "", domain.ErrInvalidTransition.WithMessage("unknown status %q", next)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 AND tenant_id = $2 FOR UPDATE
	`, orderID, tenantID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, "", err
	}

	if !current.CanTransitionTo(next) {
		return nil, "", domain.ErrInvalidTransition.WithMessage("cannot move %s -> %s", current, next)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = $4
	`, orderID, tenantID, next, current)
	if err != nil {
		return nil, "", err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, "", err
	}
	if affected == 0 {
		// The row lock above makes this unreachable; keep the guard so
		// a lost update can never slip through silently.
		return nil, "", fmt.Errorf("status guard failed for order %s", orderID)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", err
	}

	order, err := r.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, "", err
	}
	return order, current, nil
}

// GetByID loads an order with its item snapshots.
func (r *Repository) GetByID(ctx context.Context, tenantID, orderID string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, short_code, status, total, currency, address_id, note, created_at
		FROM orders
		WHERE id = $1 AND tenant_id = $2
	`, orderID, tenantID).Scan(&order.ID, &order.TenantID, &order.UserID, &order.ShortCode,
		&order.Status, &order.Total, &order.Currency, &order.AddressID, &order.Note, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, variant_id, title_snapshot, variant_snapshot, unit_price, quantity, currency
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.TitleSnapshot,
			&item.VariantSnapshot, &item.UnitPrice, &item.Quantity, &item.Currency); err != nil {
			return nil, err
		}
		item.OrderID = orderID
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOwnedByID loads an order only if it belongs to the calling buyer.
func (r *Repository) GetOwnedByID(ctx context.Context, tenantID, userID, orderID string) (*domain.Order, error) {
	order, err := r.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetAddress resolves the shipping address attached to an order.
func (r *Repository) GetAddress(ctx context.Context, addressID string) (*domain.Address, error) {
	a := &domain.Address{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, label, line1, line2, city, region, country, postal_code, is_default
		FROM addresses
		WHERE id = $1
	`, addressID).Scan(&a.ID, &a.TenantID, &a.UserID, &a.Label, &a.Line1, &a.Line2,
		&a.City, &a.Region, &a.Country, &a.PostalCode, &a.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

type Page struct {
	Orders     []domain.Order
	NextCursor *string
}

// ListByUser returns the buyer's orders newest first with keyset
// pagination: the cursor is the last order id of the previous page.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *string, limit int) (*Page, error) {
	if limit < 1 || limit > 50 {
		limit = 20
	}

	query := `
		SELECT id, short_code, status, total, currency, created_at
		FROM orders
		WHERE tenant_id = $1 AND user_id = $2
	`
	args := []any{tenantID, userID}

	if cursor != nil {
		query += `
		AND (created_at, id) < (SELECT created_at, id FROM orders WHERE id = $3 AND tenant_id = $1)
		`
		args = append(args, *cursor)
	}

	query += fmt.Sprintf(`
		ORDER BY created_at DESC, id DESC
		LIMIT %d
	`, limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	page := &Page{Orders: []domain.Order{}}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.ShortCode, &o.Status, &o.Total, &o.Currency, &o.CreatedAt); err != nil {
			return nil, err
		}
		page.Orders = append(page.Orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(page.Orders) > limit {
		page.Orders = page.Orders[:limit]
		last := page.Orders[len(page.Orders)-1].ID
		page.NextCursor = &last
	}

	return page, nil
}

// ListByStatus is the operator-facing listing used by the bot's admin
// commands.
func (r *Repository) ListByStatus(ctx context.Context, tenantID string, status *domain.OrderStatus, limit int) ([]domain.Order, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	query := `
		SELECT id, user_id, short_code, status, total, currency, created_at
		FROM orders
		WHERE tenant_id = $1
	`
	args := []any{tenantID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ShortCode, &o.Status, &o.Total, &o.Currency, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}
