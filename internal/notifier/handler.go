package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/daveteshome/tgshe/internal/domain"
)

// Handler turns order events into webhook notifications for the buyer
// and the shop operator. Notifications are informational only: stock
// and order state were settled inside the checkout transaction, so
// delivery is best effort. A failed delivery is logged and the event
// still completes, never propagated back into the order.
type Handler struct {
	buyerWebhookURL    string
	operatorWebhookURL string
	httpClient         *http.Client
	logger             *slog.Logger
}

func NewHandler(buyerWebhookURL, operatorWebhookURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		buyerWebhookURL:    buyerWebhookURL,
		operatorWebhookURL: operatorWebhookURL,
		httpClient:         client,
		logger:             logger,
	}
}

type notification struct {
	Kind     string `json:"kind"`
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	OrderID  string `json:"orderId"`
	Text     string `json:"text"`
}

func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event",
		"order_id", event.OrderID, "tenant_id", event.TenantID, "short_code", event.ShortCode)

	buyer := notification{
		Kind:     "order.created",
		TenantID: event.TenantID,
		UserID:   event.UserID,
		OrderID:  event.OrderID,
		Text:     fmt.Sprintf("Order %s placed: %d item(s), %s %s.", event.ShortCode, totalQuantity(event.Items), event.Total, event.Currency),
	}
	if err := h.post(ctx, h.buyerWebhookURL, buyer); err != nil {
		h.logger.Error("failed to notify buyer", "error", err, "order_id", event.OrderID)
	}

	operator := notification{
		Kind:     "order.created",
		TenantID: event.TenantID,
		UserID:   event.UserID,
		OrderID:  event.OrderID,
		Text:     fmt.Sprintf("New order %s from user %s: %s %s.", event.ShortCode, event.UserID, event.Total, event.Currency),
	}
	if err := h.post(ctx, h.operatorWebhookURL, operator); err != nil {
		h.logger.Error("failed to notify operator", "error", err, "order_id", event.OrderID)
	}

	return nil
}

func (h *Handler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal status changed event: %w", err)
	}

	h.logger.Info("processing status changed event",
		"order_id", event.OrderID, "from", event.From, "to", event.To)

	buyer := notification{
		Kind:     "order.status_changed",
		TenantID: event.TenantID,
		UserID:   event.UserID,
		OrderID:  event.OrderID,
		Text:     fmt.Sprintf("Order %s is now %s.", event.ShortCode, event.To),
	}
	if err := h.post(ctx, h.buyerWebhookURL, buyer); err != nil {
		h.logger.Error("failed to notify buyer", "error", err, "order_id", event.OrderID)
	}

	return nil
}

func (h *Handler) post(ctx context.Context, url string, n notification) error {
	if url == "" {
		return nil
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func totalQuantity(items []domain.EventItem) int {
	var n int
	for _, item := range items {
		n += item.Quantity
	}
	return n
}
