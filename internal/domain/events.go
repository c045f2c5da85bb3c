package domain

import "time"

type OrderCreatedEvent struct {
	OrderID   string      `json:"order_id"`
	TenantID  string      `json:"tenant_id"`
	UserID    string      `json:"user_id"`
	ShortCode string      `json:"short_code"`
	Total     string      `json:"total"`
	Currency  string      `json:"currency"`
	Items     []EventItem `json:"items"`
	Timestamp time.Time   `json:"timestamp"`
}

type EventItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
}

type OrderStatusChangedEvent struct {
	OrderID   string      `json:"order_id"`
	TenantID  string      `json:"tenant_id"`
	UserID    string      `json:"user_id"`
	ShortCode string      `json:"short_code"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	Timestamp time.Time   `json:"timestamp"`
}
