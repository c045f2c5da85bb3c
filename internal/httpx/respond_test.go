package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/daveteshome/tgshe/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		wantCode string
	}{
		{"validation", domain.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"not found", domain.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"conflict", domain.ErrOutOfStock, http.StatusConflict, "OUT_OF_STOCK"},
		{"wrapped conflict", fmt.Errorf("checkout: %w", domain.ErrCartEmpty), http.StatusConflict, "CART_EMPTY"},
		{"plain error", errors.New("pq: connection refused"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, discardLogger(), tc.err)

			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}

			var body struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tc.wantCode)
			}
			if tc.wantCode == "" && body.Error != "internal server error" {
				t.Errorf("internal errors must not leak details, got %q", body.Error)
			}
		})
	}
}

func TestIdentityFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	if _, ok := IdentityFromRequest(req); ok {
		t.Error("expected missing identity without headers")
	}

	req.Header.Set("X-Tenant-Id", "t1")
	req.Header.Set("X-User-Id", "u1")
	id, ok := IdentityFromRequest(req)
	if !ok {
		t.Fatal("expected identity with both headers set")
	}
	if id.TenantID != "t1" || id.UserID != "u1" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestCopyIdentity(t *testing.T) {
	src := httptest.NewRequest(http.MethodGet, "/cart", nil)
	src.Header.Set("X-Tenant-Id", "t1")
	src.Header.Set("X-User-Id", "u1")

	dst := httptest.NewRequest(http.MethodGet, "/cart", nil)
	CopyIdentity(dst, src)

	if dst.Header.Get("X-Tenant-Id") != "t1" || dst.Header.Get("X-User-Id") != "u1" {
		t.Errorf("identity headers not forwarded: %+v", dst.Header)
	}
}
