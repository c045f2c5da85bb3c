package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/daveteshome/tgshe/internal/domain"
	"github.com/daveteshome/tgshe/internal/httpx"
	"github.com/daveteshome/tgshe/internal/messaging"
)

type Handler struct {
	repo     *Repository
	producer *messaging.Producer
	logger   *slog.Logger
}

func NewHandler(repo *Repository, producer *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

type orderSummary struct {
	ID        string `json:"id"`
	ShortCode string `json:"shortCode"`
	Status    string `json:"status"`
	Total     string `json:"total"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"createdAt"`
}

type listResponse struct {
	Items      []orderSummary `json:"items"`
	NextCursor *string        `json:"nextCursor"`
}

func toSummary(o domain.Order) orderSummary {
	return orderSummary{
		ID:        o.ID,
		ShortCode: o.ShortCode,
		Status:    string(o.Status),
		Total:     o.Total.StringFixed(2),
		Currency:  o.Currency,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.repo.ListByUser(r.Context(), id.TenantID, id.UserID, cursor, limit)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	resp := listResponse{Items: make([]orderSummary, 0, len(page.Orders)), NextCursor: page.NextCursor}
	for _, o := range page.Orders {
		resp.Items = append(resp.Items, toSummary(o))
	}

	h.logger.Info("orders listed", "tenant_id", id.TenantID, "user_id", id.UserID, "count", len(resp.Items))
	httpx.WriteJSON(w, h.logger, http.StatusOK, resp)
}

type orderItemDetail struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Title     string  `json:"title"`
	Variant   *string `json:"variant,omitempty"`
	Qty       int     `json:"quantity"`
	UnitPrice string  `json:"unitPrice"`
	Currency  string  `json:"currency"`
}

type addressDetail struct {
	Label      string  `json:"label"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     *string `json:"region,omitempty"`
	Country    string  `json:"country"`
	PostalCode *string `json:"postalCode,omitempty"`
}

type orderDetail struct {
	ID        string            `json:"id"`
	ShortCode string            `json:"shortCode"`
	Status    string            `json:"status"`
	Total     string            `json:"total"`
	Currency  string            `json:"currency"`
	Note      *string           `json:"note,omitempty"`
	CreatedAt string            `json:"createdAt"`
	Address   *addressDetail    `json:"address,omitempty"`
	Items     []orderItemDetail `json:"items"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	orderID := r.PathValue("id")
	if orderID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetOwnedByID(r.Context(), id.TenantID, id.UserID, orderID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	detail := orderDetail{
		ID:        order.ID,
		ShortCode: order.ShortCode,
		Status:    string(order.Status),
		Total:     order.Total.StringFixed(2),
		Currency:  order.Currency,
		Note:      order.Note,
		CreatedAt: order.CreatedAt.UTC().Format(time.RFC3339),
		Items:     make([]orderItemDetail, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		detail.Items = append(detail.Items, orderItemDetail{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Title:     it.TitleSnapshot,
			Variant:   it.VariantSnapshot,
			Qty:       it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Currency:  it.Currency,
		})
	}

	if order.AddressID != nil {
		addr, err := h.repo.GetAddress(r.Context(), *order.AddressID)
		if err != nil {
			httpx.WriteDomainError(w, h.logger, err)
			return
		}
		if addr != nil {
			detail.Address = &addressDetail{
				Label:      addr.Label,
				Line1:      addr.Line1,
				Line2:      addr.Line2,
				City:       addr.City,
				Region:     addr.Region,
				Country:    addr.Country,
				PostalCode: addr.PostalCode,
			}
		}
	}

	h.logger.Info("order retrieved", "tenant_id", id.TenantID, "order_id", order.ID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, detail)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// HandleSetStatus is the operator surface. It is mounted behind the
// admin route group; ordinary buyers never reach it.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	orderID := r.PathValue("id")
	if orderID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	order, previous, err := h.repo.SetStatus(r.Context(), id.TenantID, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.publishStatusChanged(r, order, previous)
	h.logger.Info("order status updated", "tenant_id", id.TenantID, "order_id", order.ID,
		"from", previous, "to", order.Status)
	httpx.WriteJSON(w, h.logger, http.StatusOK, toSummary(*order))
}

// publishStatusChanged notifies buyer and operator channels. Delivery
// is best-effort; the transition is already committed.
func (h *Handler) publishStatusChanged(r *http.Request, order *domain.Order, previous domain.OrderStatus) {
	if h.producer == nil {
		return
	}

	event := domain.OrderStatusChangedEvent{
		OrderID:   order.ID,
		TenantID:  order.TenantID,
		UserID:    order.UserID,
		ShortCode: order.ShortCode,
		From:      previous,
		To:        order.Status,
		Timestamp: time.Now().UTC(),
	}

	if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
		h.logger.Error("failed to publish status changed event", "error", err, "order_id", order.ID)
	}
}

// HandleAdminList lists a tenant's orders, optionally filtered by
// status, for operator tooling.
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var status *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.OrderStatus(s)
		if !st.Valid() {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "unknown status")
			return
		}
		status = &st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := h.repo.ListByStatus(r.Context(), id.TenantID, status, limit)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	items := make([]orderSummary, 0, len(orders))
	for _, o := range orders {
		items = append(items, toSummary(o))
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, listResponse{Items: items})
}
