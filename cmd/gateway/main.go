package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/daveteshome/tgshe/internal/config"
	"github.com/daveteshome/tgshe/internal/gateway"
	"github.com/daveteshome/tgshe/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := telemetry.NewLogger()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "store-gateway", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	storeProxy := gateway.NewServiceProxy(cfg.StoreAPIURL, httpClient)
	handler := gateway.NewHandler(storeProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("PATCH /cart/items/{id}", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("DELETE /cart/items/{id}", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("POST /buy-now", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("GET /profile", telemetry.WithHTTPRoute(handler.HandleStore))
	mux.HandleFunc("PUT /profile", telemetry.WithHTTPRoute(handler.HandleStore))

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(mux, "store-gateway",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting gateway", "addr", cfg.HTTPAddr, "backend", cfg.StoreAPIURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
