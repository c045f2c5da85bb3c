package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/daveteshome/tgshe/internal/domain"
	"github.com/daveteshome/tgshe/internal/httpx"
)

// Handler exposes the ledger to operator tooling. It sits behind the
// admin route group.
type Handler struct {
	ledger *Ledger
	logger *slog.Logger
}

func NewHandler(ledger *Ledger, logger *slog.Logger) *Handler {
	return &Handler{
		ledger: ledger,
		logger: logger,
	}
}

type moveResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	OrderID     *string `json:"orderId,omitempty"`
	OrderItemID *string `json:"orderItemId,omitempty"`
	Kind        string  `json:"kind"`
	Quantity    int     `json:"quantity"`
	Reason      string  `json:"reason"`
	CreatedAt   string  `json:"createdAt"`
}

func toMoveResponse(m domain.InventoryMove) moveResponse {
	return moveResponse{
		ID:          m.ID,
		ProductID:   m.ProductID,
		VariantID:   m.VariantID,
		OrderID:     m.OrderID,
		OrderItemID: m.OrderItemID,
		Kind:        string(m.Kind),
		Quantity:    m.Quantity,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) HandleListMoves(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	productID := r.URL.Query().Get("productId")
	if productID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "productId is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	moves, err := h.ledger.ListByProduct(r.Context(), id.TenantID, productID, limit)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	items := make([]moveResponse, 0, len(moves))
	for _, m := range moves {
		items = append(items, toMoveResponse(m))
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string][]moveResponse{"items": items})
}

type recordInRequest struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Qty       int     `json:"qty"`
	Reason    string  `json:"reason"`
}

func (h *Handler) HandleRecordIn(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req recordInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Reason == "" {
		req.Reason = "manual restock"
	}

	move, err := h.ledger.RecordIn(r.Context(), id.TenantID, req.ProductID, req.VariantID, req.Qty, req.Reason)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("inventory move recorded", "tenant_id", id.TenantID,
		"product_id", req.ProductID, "kind", "IN", "qty", req.Qty)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, toMoveResponse(*move))
}
