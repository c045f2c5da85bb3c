package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/daveteshome/tgshe/internal/cart"
	"github.com/daveteshome/tgshe/internal/catalog"
	"github.com/daveteshome/tgshe/internal/checkout"
	"github.com/daveteshome/tgshe/internal/config"
	"github.com/daveteshome/tgshe/internal/inventory"
	"github.com/daveteshome/tgshe/internal/messaging"
	"github.com/daveteshome/tgshe/internal/orders"
	"github.com/daveteshome/tgshe/internal/profile"
	"github.com/daveteshome/tgshe/internal/session"
	"github.com/daveteshome/tgshe/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := telemetry.NewLogger()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB("postgres", cfg.PostgresDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()
	sessions := session.NewStore(redisClient, cfg.SessionTTL)

	var createdProducer, statusProducer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		createdProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderCreated)
		defer func() { _ = createdProducer.Close() }()
		statusProducer = messaging.NewProducer(cfg.KafkaBrokers, messaging.TopicOrderStatusChanged)
		defer func() { _ = statusProducer.Close() }()
	}

	catalogHandler := catalog.NewHandler(catalog.NewRepository(db), logger)
	cartHandler := cart.NewHandler(cart.NewRepository(db), logger)
	profileRepo := profile.NewRepository(db)
	checkoutHandler := checkout.NewHandler(checkout.NewOrchestrator(db), createdProducer, sessions, profileRepo, logger)
	ordersHandler := orders.NewHandler(orders.NewRepository(db), statusProducer, logger)
	inventoryHandler := inventory.NewHandler(inventory.NewLedger(db), logger)
	profileHandler := profile.NewHandler(profileRepo, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(catalogHandler.HandleListCategories))
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleListProducts))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGetProduct))

	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAddItem))
	mux.HandleFunc("PATCH /cart/items/{id}", telemetry.WithHTTPRoute(cartHandler.HandleSetQuantity))
	mux.HandleFunc("DELETE /cart/items/{id}", telemetry.WithHTTPRoute(cartHandler.HandleRemoveItem))

	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandleCheckout))
	mux.HandleFunc("POST /buy-now", telemetry.WithHTTPRoute(checkoutHandler.HandleBuyNow))

	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(ordersHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleGet))

	mux.HandleFunc("GET /profile", telemetry.WithHTTPRoute(profileHandler.HandleGet))
	mux.HandleFunc("PUT /profile", telemetry.WithHTTPRoute(profileHandler.HandleUpdate))

	mux.HandleFunc("GET /admin/orders", telemetry.WithHTTPRoute(ordersHandler.HandleAdminList))
	mux.HandleFunc("PATCH /admin/orders/{id}/status", telemetry.WithHTTPRoute(ordersHandler.HandleSetStatus))
	mux.HandleFunc("GET /admin/inventory/moves", telemetry.WithHTTPRoute(inventoryHandler.HandleListMoves))
	mux.HandleFunc("POST /admin/inventory/in", telemetry.WithHTTPRoute(inventoryHandler.HandleRecordIn))

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(mux, cfg.ServiceName,
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
		logger.Info("starting store api", "addr", cfg.HTTPAddr)
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
