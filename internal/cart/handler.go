package cart

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/daveteshome/tgshe/internal/domain"
	"github.com/daveteshome/tgshe/internal/httpx"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type itemResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Title       string  `json:"title"`
	VariantName *string `json:"variantName,omitempty"`
	Qty         int     `json:"qty"`
	UnitPrice   string  `json:"unitPrice"`
	Currency    string  `json:"currency"`
	LineTotal   string  `json:"lineTotal"`
}

type cartResponse struct {
	ID       string         `json:"id"`
	Items    []itemResponse `json:"items"`
	Subtotal string         `json:"subtotal"`
	Currency string         `json:"currency"`
}

func toCartResponse(c *domain.Cart) cartResponse {
	resp := cartResponse{
		ID:       c.ID,
		Items:    make([]itemResponse, 0, len(c.Items)),
		Subtotal: c.Subtotal().StringFixed(2),
		Currency: c.Currency(),
	}
	for _, it := range c.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Title:       it.Title,
			VariantName: it.VariantName,
			Qty:         it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Currency:    it.Currency,
			LineTotal:   it.LineTotal().StringFixed(2),
		})
	}
	return resp
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	cart, err := h.repo.Get(r.Context(), id.TenantID, id.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, toCartResponse(cart))
}

type addItemRequest struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Qty       int     `json:"qty"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req addItemRequest
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

	cart, err := h.repo.Add(r.Context(), id.TenantID, id.UserID, req.ProductID, req.VariantID, req.Qty)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("cart item added", "tenant_id", id.TenantID, "user_id", id.UserID, "product_id", req.ProductID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, toCartResponse(cart))
}

type setQuantityRequest struct {
	Qty int `json:"qty"`
}

func (h *Handler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	itemID := r.PathValue("id")
	if itemID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing item id")
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.repo.SetQuantity(r.Context(), id.TenantID, id.UserID, itemID, req.Qty)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("cart item updated", "tenant_id", id.TenantID, "user_id", id.UserID, "item_id", itemID, "qty", req.Qty)
	httpx.WriteJSON(w, h.logger, http.StatusOK, toCartResponse(cart))
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	itemID := r.PathValue("id")
	if itemID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing item id")
		return
	}

	cart, err := h.repo.Remove(r.Context(), id.TenantID, id.UserID, itemID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("cart item removed", "tenant_id", id.TenantID, "user_id", id.UserID, "item_id", itemID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, toCartResponse(cart))
}
