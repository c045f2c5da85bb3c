package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/daveteshome/tgshe/internal/domain"
)

// Repository is the storefront's read-only view of the catalog.
// Products and variants are owned by catalog management; checkout is
// the only writer of their stock counters.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListCategories(ctx context.Context, tenantID string) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, slug, position, active
		FROM categories
		WHERE tenant_id = $1 AND active
		ORDER BY position, title
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Position, &c.Active); err != nil {
			return nil, err
		}
		c.TenantID = tenantID
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

type ProductPage struct {
	Items   []domain.Product
	Total   int
	Page    int
	PerPage int
}

// ListProducts returns active products, optionally filtered by
// category, with offset pagination matching the storefront grid.
func (r *Repository) ListProducts(ctx context.Context, tenantID string, categoryID *string, page, perPage int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 50 {
		perPage = 12
	}

	countQuery := `SELECT COUNT(*) FROM products WHERE tenant_id = $1 AND active`
	listQuery := `
		SELECT id, category_id, title, description, sku, price, currency, stock, active, created_at
		FROM products
		WHERE tenant_id = $1 AND active
	`
	args := []any{tenantID}
	if categoryID != nil {
		countQuery += ` AND category_id = $2`
		listQuery += ` AND category_id = $2`
		args = append(args, *categoryID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	offset := (page - 1) * perPage
	listArgs := append(args, perPage, offset)
	listQuery += ` ORDER BY title LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := &ProductPage{Items: []domain.Product{}, Total: total, Page: page, PerPage: perPage}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Title, &p.Description, &p.SKU,
			&p.Price, &p.Currency, &p.Stock, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.TenantID = tenantID
		result.Items = append(result.Items, p)
	}

	return result, rows.Err()
}

// GetProduct loads one active product with its variants.
func (r *Repository) GetProduct(ctx context.Context, tenantID, productID string) (*domain.Product, []domain.ProductVariant, error) {
	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, title, description, sku, price, currency, stock, active, created_at
		FROM products
		WHERE id = $1 AND tenant_id = $2 AND active
	`, productID, tenantID).Scan(&p.ID, &p.CategoryID, &p.Title, &p.Description, &p.SKU,
		&p.Price, &p.Currency, &p.Stock, &p.Active, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.ErrProductUnavailable
	}
	if err != nil {
		return nil, nil, err
	}
	p.TenantID = tenantID

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price_diff, stock
		FROM product_variants
		WHERE product_id = $1 AND tenant_id = $2
		ORDER BY name
	`, productID, tenantID)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	variants := []domain.ProductVariant{}
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.Name, &v.PriceDiff, &v.Stock); err != nil {
			return nil, nil, err
		}
		v.TenantID = tenantID
		v.ProductID = productID
		variants = append(variants, v)
	}

	return p, variants, rows.Err()
}
