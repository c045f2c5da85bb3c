package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandler_HandleStore(t *testing.T) {
	t.Run("proxies GET /products", func(t *testing.T) {
		storeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/products" {
				t.Errorf("expected /products, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"items":[{"id":"p1"}]}`))
		}))
		defer storeServer.Close()

		handler := NewHandler(
			NewServiceProxy(storeServer.URL, storeServer.Client()),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		rec := httptest.NewRecorder()

		handler.HandleStore(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != `{"items":[{"id":"p1"}]}` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		storeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":"OUT_OF_STOCK"}}`))
		}))
		defer storeServer.Close()

		handler := NewHandler(
			NewServiceProxy(storeServer.URL, storeServer.Client()),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		rec := httptest.NewRecorder()

		handler.HandleStore(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("blocks admin paths", func(t *testing.T) {
		storeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("admin request should not reach backend: %s", r.URL.Path)
		}))
		defer storeServer.Close()

		handler := NewHandler(
			NewServiceProxy(storeServer.URL, storeServer.Client()),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		rec := httptest.NewRecorder()

		handler.HandleStore(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when store service unavailable", func(t *testing.T) {
		handler := NewHandler(
			NewServiceProxy("http://localhost:99999", &http.Client{}),
			slog.New(slog.NewTextHandler(io.Discard, nil)),
		)

		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		rec := httptest.NewRecorder()

		handler.HandleStore(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "service unavailable" {
			t.Errorf("expected 'service unavailable', got %s", resp["error"])
		}
	})
}
