package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/daveteshome/tgshe/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored profile for the caller, or an empty profile
// carrying just the id when nothing has been saved yet.
func (r *Repository) Get(ctx context.Context, userID string) (*domain.User, error) {
	u := &domain.User{TgID: userID}
	err := r.db.QueryRowContext(ctx, `
		SELECT tg_id, username, name, phone, created_at
		FROM users
		WHERE tg_id = $1
	`, userID).Scan(&u.TgID, &u.Username, &u.Name, &u.Phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Repository) Upsert(ctx context.Context, u domain.User) (*domain.User, error) {
	out := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (tg_id, username, name, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tg_id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			phone = EXCLUDED.phone
		RETURNING tg_id, username, name, phone, created_at
	`, u.TgID, u.Username, u.Name, u.Phone).Scan(&out.TgID, &out.Username, &out.Name, &out.Phone, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultAddress returns the caller's default shipping address for the
// tenant, or nil when none is saved.
func (r *Repository) DefaultAddress(ctx context.Context, tenantID, userID string) (*domain.Address, error) {
	a := &domain.Address{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, label, line1, line2, city, region, country, postal_code, is_default
		FROM addresses
		WHERE tenant_id = $1 AND user_id = $2 AND is_default
		LIMIT 1
	`, tenantID, userID).Scan(&a.ID, &a.TenantID, &a.UserID, &a.Label, &a.Line1, &a.Line2,
		&a.City, &a.Region, &a.Country, &a.PostalCode, &a.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
