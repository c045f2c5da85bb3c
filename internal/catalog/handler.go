package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

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

type categoryResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	categories, err := h.repo.ListCategories(r.Context(), id.TenantID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	// Virtual "All" entry first, as the storefront grid expects.
	items := []categoryResponse{{ID: "all", Title: "All"}}
	for _, c := range categories {
		items = append(items, categoryResponse{ID: c.ID, Title: c.Title})
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string][]categoryResponse{"items": items})
}

type productResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Price       string  `json:"price"`
	Currency    string  `json:"currency"`
	Stock       int     `json:"stock"`
	CategoryID  *string `json:"categoryId,omitempty"`
}

type productListResponse struct {
	Items   []productResponse `json:"items"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"perPage"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Currency:    p.Currency,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
	}
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var categoryID *string
	if c := r.URL.Query().Get("category"); c != "" && c != "all" {
		categoryID = &c
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.repo.ListProducts(r.Context(), id.TenantID, categoryID, page, perPage)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	resp := productListResponse{
		Items:   make([]productResponse, 0, len(result.Items)),
		Total:   result.Total,
		Page:    result.Page,
		PerPage: result.PerPage,
	}
	for _, p := range result.Items {
		resp.Items = append(resp.Items, toProductResponse(p))
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, resp)
}

type variantResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

type productDetailResponse struct {
	productResponse
	Variants []variantResponse `json:"variants"`
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	productID := r.PathValue("id")
	if productID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing product id")
		return
	}

	product, variants, err := h.repo.GetProduct(r.Context(), id.TenantID, productID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	resp := productDetailResponse{
		productResponse: toProductResponse(*product),
		Variants:        make([]variantResponse, 0, len(variants)),
	}
	for _, v := range variants {
		resp.Variants = append(resp.Variants, variantResponse{
			ID:    v.ID,
			Name:  v.Name,
			Price: v.EffectivePrice(product.Price).StringFixed(2),
			Stock: v.Stock,
		})
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, resp)
}
