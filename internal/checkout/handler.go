package checkout

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/daveteshome/tgshe/internal/domain"
	"github.com/daveteshome/tgshe/internal/httpx"
	"github.com/daveteshome/tgshe/internal/messaging"
	"github.com/daveteshome/tgshe/internal/profile"
	"github.com/daveteshome/tgshe/internal/session"
)

type Handler struct {
	orchestrator *Orchestrator
	producer     *messaging.Producer
	sessions     *session.Store
	profiles     *profile.Repository
	logger       *slog.Logger
}

func NewHandler(orchestrator *Orchestrator, producer *messaging.Producer, sessions *session.Store, profiles *profile.Repository, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		producer:     producer,
		sessions:     sessions,
		profiles:     profiles,
		logger:       logger,
	}
}

type addressPayload struct {
	Label      string  `json:"label"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     *string `json:"region,omitempty"`
	Country    string  `json:"country"`
	PostalCode *string `json:"postalCode,omitempty"`
}

func (p *addressPayload) toDomain() *domain.Address {
	if p == nil {
		return nil
	}
	return &domain.Address{
		Label:      p.Label,
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		Region:     p.Region,
		Country:    p.Country,
		PostalCode: p.PostalCode,
	}
}

type checkoutRequest struct {
	Address *addressPayload `json:"address"`
	Note    *string         `json:"note,omitempty"`
}

type buyNowRequest struct {
	ProductID string          `json:"productId"`
	VariantID *string         `json:"variantId,omitempty"`
	Qty       int             `json:"qty"`
	Address   *addressPayload `json:"address"`
	Note      *string         `json:"note,omitempty"`
}

type orderResponse struct {
	OrderID   string `json:"orderId"`
	ShortCode string `json:"shortCode"`
	Status    string `json:"status"`
	Total     string `json:"total"`
	Currency  string `json:"currency"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		OrderID:   o.ID,
		ShortCode: o.ShortCode,
		Status:    string(o.Status),
		Total:     o.Total.StringFixed(2),
		Currency:  o.Currency,
	}
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	address, err := h.resolveAddress(r, id, req.Address)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	order, err := h.orchestrator.FromCart(r.Context(), id.TenantID, id.UserID, address, req.Note)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.publishCreated(r, order)
	h.clearSession(r, id)
	h.logger.Info("checkout complete", "tenant_id", id.TenantID, "user_id", id.UserID,
		"order_id", order.ID, "short_code", order.ShortCode, "total", order.Total.StringFixed(2))
	httpx.WriteJSON(w, h.logger, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) HandleBuyNow(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req buyNowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	address, err := h.resolveAddress(r, id, req.Address)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	order, err := h.orchestrator.BuyNow(r.Context(), id.TenantID, id.UserID, req.ProductID, req.VariantID, req.Qty, address, req.Note)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.publishCreated(r, order)
	h.clearSession(r, id)
	h.logger.Info("buy-now complete", "tenant_id", id.TenantID, "user_id", id.UserID,
		"order_id", order.ID, "short_code", order.ShortCode)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, toOrderResponse(order))
}

// resolveAddress prefers the address in the request and falls back to
// the buyer's saved default. Orders can be placed with no address at
// all; the operator then arranges delivery out of band.
func (h *Handler) resolveAddress(r *http.Request, id httpx.Identity, payload *addressPayload) (*domain.Address, error) {
	if payload != nil {
		return payload.toDomain(), nil
	}
	if h.profiles == nil {
		return nil, nil
	}
	return h.profiles.DefaultAddress(r.Context(), id.TenantID, id.UserID)
}

// clearSession drops any half-finished conversation for the buyer once
// an order is placed, so the next message starts fresh.
func (h *Handler) clearSession(r *http.Request, id httpx.Identity) {
	if h.sessions == nil {
		return
	}
	if err := h.sessions.Clear(r.Context(), id.TenantID, id.UserID); err != nil {
		h.logger.Error("failed to clear session", "error", err, "user_id", id.UserID)
	}
}

// publishCreated emits the order.created event. Notification delivery
// is best-effort: the order is already committed and a broker failure
// must not surface to the buyer.
func (h *Handler) publishCreated(r *http.Request, order *domain.Order) {
	if h.producer == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		OrderID:   order.ID,
		TenantID:  order.TenantID,
		UserID:    order.UserID,
		ShortCode: order.ShortCode,
		Total:     order.Total.StringFixed(2),
		Currency:  order.Currency,
		Timestamp: time.Now().UTC(),
	}
	for _, it := range order.Items {
		event.Items = append(event.Items, domain.EventItem{
			ProductID: it.ProductID,
			Title:     it.TitleSnapshot,
			Quantity:  it.Quantity,
		})
	}

	if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
		h.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}
