package test

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
)

// SeedTenant inserts a tenant and returns its id.
func SeedTenant(t *testing.T, db *sql.DB, slug string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO tenants (id, slug, name) VALUES ($1, $2, $3)`,
		id, slug, slug,
	)
	if err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}
	return id
}

// SeedProduct inserts an active product and returns its id.
func SeedProduct(t *testing.T, db *sql.DB, tenantID, title, price, currency string, stock int) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO products (id, tenant_id, title, price, currency, stock, active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
		id, tenantID, title, price, currency, stock,
	)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return id
}

// SeedVariant inserts a variant for a product and returns its id.
func SeedVariant(t *testing.T, db *sql.DB, tenantID, productID, name, priceDiff string, stock int) string {
	t.Helper()

	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO product_variants (id, tenant_id, product_id, name, price_diff, stock)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, tenantID, productID, name, priceDiff, stock,
	)
	if err != nil {
		t.Fatalf("failed to seed variant: %v", err)
	}
	return id
}

// ProductStock reads the current stock counter for a product.
func ProductStock(t *testing.T, db *sql.DB, productID string) int {
	t.Helper()

	var stock int
	if err := db.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("failed to read product stock: %v", err)
	}
	return stock
}
