package domain

import "time"

// User mirrors the identity the auth layer hands us. The id is the
// opaque chat user id; no verification happens here.
type User struct {
	TgID      string    `json:"tg_id"`
	Username  *string   `json:"username,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Address struct {
	ID         string  `json:"id"`
	TenantID   string  `json:"tenant_id"`
	UserID     string  `json:"user_id"`
	Label      string  `json:"label"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     *string `json:"region,omitempty"`
	Country    string  `json:"country"`
	PostalCode *string `json:"postal_code,omitempty"`
	IsDefault  bool    `json:"is_default"`
}

// Validate checks the fields checkout requires before an address can be
// attached to an order.
func (a Address) Validate() error {
	if a.Label == "" || a.Line1 == "" || a.City == "" || a.Country == "" {
		return ErrAddressInvalid
	}
	return nil
}
