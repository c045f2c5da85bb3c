package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daveteshome/tgshe/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, errorBody{Error: message})
}

// WriteDomainError maps the error taxonomy to response codes: 400 for
// validation, 404 for not-found, 409 for conflict, 500 for everything
// else. Internal errors never leak their message to the caller.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		logger.Error("internal error", "error", err)
		WriteError(w, logger, http.StatusInternalServerError, "internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch derr.Kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindInternal:
		logger.Error("internal error", "error", err)
		WriteError(w, logger, http.StatusInternalServerError, "internal server error")
		return
	}

	WriteJSON(w, logger, status, errorBody{Error: derr.Message, Code: derr.Code})
}
