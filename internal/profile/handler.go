package profile

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

type profileResponse struct {
	TgID     string  `json:"tgId"`
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	u, err := h.repo.Get(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, profileResponse{
		TgID:     u.TgID,
		Username: u.Username,
		Name:     u.Name,
		Phone:    u.Phone,
	})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IdentityFromRequest(r)
	if !ok {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.repo.Upsert(r.Context(), domain.User{
		TgID:     id.UserID,
		Username: req.Username,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("profile updated", "user_id", id.UserID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, profileResponse{
		TgID:     u.TgID,
		Username: u.Username,
		Name:     u.Name,
		Phone:    u.Phone,
	})
}
