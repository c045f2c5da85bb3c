//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	segkafka "github.com/segmentio/kafka-go"

	"github.com/daveteshome/tgshe/internal/cart"
	"github.com/daveteshome/tgshe/internal/checkout"
	"github.com/daveteshome/tgshe/internal/domain"
	"github.com/daveteshome/tgshe/internal/inventory"
	"github.com/daveteshome/tgshe/internal/messaging"
	"github.com/daveteshome/tgshe/internal/orders"
	"github.com/daveteshome/tgshe/internal/session"
)

var testAddress = &domain.Address{
	Label:   "home",
	Line1:   "1 Main St",
	City:    "Springfield",
	Country: "US",
}

func TestCheckoutFromCart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	tenantID := SeedTenant(t, db, "shop-a")
	mugID := SeedProduct(t, db, tenantID, "Mug", "5.00", "USD", 10)
	shirtID := SeedProduct(t, db, tenantID, "Shirt", "15.00", "USD", 3)

	carts := cart.NewRepository(db)
	userID := "user-1"

	if _, err := carts.Add(ctx, tenantID, userID, mugID, nil, 2); err != nil {
		t.Fatalf("failed to add mug: %v", err)
	}
	if _, err := carts.Add(ctx, tenantID, userID, shirtID, nil, 1); err != nil {
		t.Fatalf("failed to add shirt: %v", err)
	}

	orch := checkout.NewOrchestrator(db)
	order, err := orch.FromCart(ctx, tenantID, userID, testAddress, nil)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected pending order, got %s", order.Status)
	}
	if got := order.Total.StringFixed(2); got != "25.00" {
		t.Errorf("expected total 25.00, got %s", got)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}
	if order.ShortCode == "" {
		t.Error("expected a short code")
	}

	if got := ProductStock(t, db, mugID); got != 8 {
		t.Errorf("expected mug stock 8, got %d", got)
	}
	if got := ProductStock(t, db, shirtID); got != 2 {
		t.Errorf("expected shirt stock 2, got %d", got)
	}

	ledger := inventory.NewLedger(db)
	for _, item := range order.Items {
		exists, err := ledger.OutMoveExists(ctx, order.ID, item.ID)
		if err != nil {
			t.Fatalf("failed to check ledger: %v", err)
		}
		if !exists {
			t.Errorf("expected OUT move for item %s", item.ID)
		}
	}

	c, err := carts.Get(ctx, tenantID, userID)
	if err != nil {
		t.Fatalf("failed to read cart: %v", err)
	}
	if len(c.Items) != 0 {
		t.Errorf("expected cleared cart, got %d items", len(c.Items))
	}

	if _, err := orch.FromCart(ctx, tenantID, userID, testAddress, nil); !errors.Is(err, domain.ErrCartEmpty) {
		t.Errorf("expected CART_EMPTY on second checkout, got %v", err)
	}
}

func TestBuyNowDoesNotOversell(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	tenantID := SeedTenant(t, db, "shop-a")
	productID := SeedProduct(t, db, tenantID, "Poster", "9.99", "USD", 5)

	orch := checkout.NewOrchestrator(db)

	const buyers = 3
	results := make([]error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := "buyer-" + uuid.NewString()
			_, results[i] = orch.BuyNow(ctx, tenantID, userID, productID, nil, 2, testAddress, nil)
		}(i)
	}
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 2 || outOfStock != 1 {
		t.Fatalf("expected 2 successes and 1 out-of-stock, got %d/%d", succeeded, outOfStock)
	}
	if got := ProductStock(t, db, productID); got != 1 {
		t.Errorf("expected final stock 1, got %d", got)
	}
}

func TestCheckoutIsAtomicAcrossLines(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	tenantID := SeedTenant(t, db, "shop-a")
	okID := SeedProduct(t, db, tenantID, "Sticker", "1.00", "USD", 10)
	scarceID := SeedProduct(t, db, tenantID, "Print", "20.00", "USD", 1)

	carts := cart.NewRepository(db)
	userID := "user-1"

	if _, err := carts.Add(ctx, tenantID, userID, okID, nil, 3); err != nil {
		t.Fatalf("failed to add sticker: %v", err)
	}
	if _, err := carts.Add(ctx, tenantID, userID, scarceID, nil, 1); err != nil {
		t.Fatalf("failed to add print: %v", err)
	}

	// Someone else takes the last print between add and checkout.
	if _, err := db.Exec(`UPDATE products SET stock = 0 WHERE id = $1`, scarceID); err != nil {
		t.Fatalf("failed to drain stock: %v", err)
	}

	orch := checkout.NewOrchestrator(db)
	if _, err := orch.FromCart(ctx, tenantID, userID, testAddress, nil); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("expected OUT_OF_STOCK, got %v", err)
	}

	if got := ProductStock(t, db, okID); got != 10 {
		t.Errorf("expected sticker stock untouched at 10, got %d", got)
	}

	var orderCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if orderCount != 0 {
		t.Errorf("expected no orders, got %d", orderCount)
	}

	c, err := carts.Get(ctx, tenantID, userID)
	if err != nil {
		t.Fatalf("failed to read cart: %v", err)
	}
	if len(c.Items) != 2 {
		t.Errorf("expected cart intact with 2 items, got %d", len(c.Items))
	}
}

func TestCheckoutRejectsDeactivatedProductVariant(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	tenantID := SeedTenant(t, db, "shop-a")
	productID := SeedProduct(t, db, tenantID, "Shirt", "15.00", "USD", 10)
	variantID := SeedVariant(t, db, tenantID, productID, "Large", "2.00", 5)

	carts := cart.NewRepository(db)
	userID := "user-1"
	if _, err := carts.Add(ctx, tenantID, userID, productID, &variantID, 1); err != nil {
		t.Fatalf("failed to add variant line: %v", err)
	}

	// The product is pulled from sale between cart-add and checkout.
	if _, err := db.Exec(`UPDATE products SET active = FALSE WHERE id = $1`, productID); err != nil {
		t.Fatalf("failed to deactivate product: %v", err)
	}

	orch := checkout.NewOrchestrator(db)
	if _, err := orch.FromCart(ctx, tenantID, userID, testAddress, nil); !errors.Is(err, domain.ErrProductUnavailable) {
		t.Fatalf("expected PRODUCT_UNAVAILABLE, got %v", err)
	}

	var variantStock int
	if err := db.QueryRow(`SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&variantStock); err != nil {
		t.Fatalf("failed to read variant stock: %v", err)
	}
	if variantStock != 5 {
		t.Errorf("expected variant stock untouched at 5, got %d", variantStock)
	}

	var orderCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&orderCount); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if orderCount != 0 {
		t.Errorf("expected no orders, got %d", orderCount)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	tenantID := SeedTenant(t, db, "shop-a")
	productID := SeedProduct(t, db, tenantID, "Mug", "5.00", "USD", 10)

	orch := checkout.NewOrchestrator(db)
	order, err := orch.BuyNow(ctx, tenantID, "user-1", productID, nil, 1, testAddress, nil)
	if err != nil {
		t.Fatalf("buy-now failed: %v", err)
	}

	repo := orders.NewRepository(db)

	updated, previous, err := repo.SetStatus(ctx, tenantID, order.ID, domain.OrderStatusShipped)
	if err != nil {
		t.Fatalf("pending -> shipped failed: %v", err)
	}
	if previous != domain.OrderStatusPending || updated.Status != domain.OrderStatusShipped {
		t.Errorf("unexpected transition: %s -> %s", previous, updated.Status)
	}

	if _, _, err := repo.SetStatus(ctx, tenantID, order.ID, domain.OrderStatusPending); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected INVALID_TRANSITION for shipped -> pending, got %v", err)
	}

	if _, _, err := repo.SetStatus(ctx, tenantID, order.ID, domain.OrderStatusDelivered); err != nil {
		t.Fatalf("shipped -> delivered failed: %v", err)
	}

	if _, _, err := repo.SetStatus(ctx, tenantID, order.ID, domain.OrderStatusCancelled); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected INVALID_TRANSITION for delivered -> cancelled, got %v", err)
	}

	// Transitions never touch the stock counters.
	if got := ProductStock(t, db, productID); got != 9 {
		t.Errorf("expected stock 9 after delivery, got %d", got)
	}

	if _, _, err := repo.SetStatus(ctx, tenantID, uuid.NewString(), domain.OrderStatusShipped); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ORDER_NOT_FOUND, got %v", err)
	}
}

func TestOrderListingCursorIsTenantScoped(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	tenantA := SeedTenant(t, db, "shop-a")
	tenantB := SeedTenant(t, db, "shop-b")
	productA := SeedProduct(t, db, tenantA, "Mug", "5.00", "USD", 10)
	productB := SeedProduct(t, db, tenantB, "Pin", "2.00", "USD", 10)

	orch := checkout.NewOrchestrator(db)
	if _, err := orch.BuyNow(ctx, tenantA, "user-1", productA, nil, 1, testAddress, nil); err != nil {
		t.Fatalf("buy-now for tenant a failed: %v", err)
	}
	foreign, err := orch.BuyNow(ctx, tenantB, "user-1", productB, nil, 1, testAddress, nil)
	if err != nil {
		t.Fatalf("buy-now for tenant b failed: %v", err)
	}

	repo := orders.NewRepository(db)

	page, err := repo.ListByUser(ctx, tenantA, "user-1", nil, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Orders) != 1 {
		t.Fatalf("expected 1 order for tenant a, got %d", len(page.Orders))
	}

	// An order id from another tenant must not anchor the page.
	page, err = repo.ListByUser(ctx, tenantA, "user-1", &foreign.ID, 10)
	if err != nil {
		t.Fatalf("list with foreign cursor failed: %v", err)
	}
	if len(page.Orders) != 0 {
		t.Errorf("expected empty page for foreign cursor, got %d orders", len(page.Orders))
	}
}

func TestInventoryLedger(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := DB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	tenantID := SeedTenant(t, db, "shop-a")
	productID := SeedProduct(t, db, tenantID, "Mug", "5.00", "USD", 2)

	ledger := inventory.NewLedger(db)

	if _, err := ledger.RecordIn(ctx, tenantID, productID, nil, 5, "restock"); err != nil {
		t.Fatalf("record in failed: %v", err)
	}
	if got := ProductStock(t, db, productID); got != 7 {
		t.Errorf("expected stock 7 after restock, got %d", got)
	}

	orch := checkout.NewOrchestrator(db)
	order, err := orch.BuyNow(ctx, tenantID, "user-1", productID, nil, 3, testAddress, nil)
	if err != nil {
		t.Fatalf("buy-now failed: %v", err)
	}
	item := order.Items[0]

	// Replaying the checkout's ledger insert must be a no-op.
	_, err = db.Exec(`
		INSERT INTO inventory_moves (id, tenant_id, product_id, variant_id, order_id, order_item_id, kind, quantity, reason)
		VALUES ($1, $2, $3, NULL, $4, $5, 'OUT', 3, 'replay')
		ON CONFLICT (order_id, order_item_id) WHERE kind = 'OUT' DO NOTHING
	`, uuid.NewString(), tenantID, productID, order.ID, item.ID)
	if err != nil {
		t.Fatalf("replay insert failed: %v", err)
	}

	var outMoves int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM inventory_moves WHERE order_id = $1 AND order_item_id = $2 AND kind = 'OUT'
	`, order.ID, item.ID).Scan(&outMoves)
	if err != nil {
		t.Fatalf("failed to count moves: %v", err)
	}
	if outMoves != 1 {
		t.Errorf("expected exactly 1 OUT move, got %d", outMoves)
	}

	moves, err := ledger.ListByProduct(ctx, tenantID, productID, 10)
	if err != nil {
		t.Fatalf("failed to list moves: %v", err)
	}
	if len(moves) != 2 {
		t.Errorf("expected 2 moves (IN + OUT), got %d", len(moves))
	}
}

func TestSessionStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr, cleanup := SetupRedis(ctx, t)
	defer cleanup()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	store := session.NewStore(client, time.Second)

	state := session.State{Step: "awaiting_phone", Data: map[string]string{"name": "Ann"}}
	if err := store.Put(ctx, "t1", "u1", state); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.Get(ctx, "t1", "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Step != "awaiting_phone" || got.Data["name"] != "Ann" {
		t.Fatalf("unexpected state: %+v", got)
	}

	if other, err := store.Get(ctx, "t1", "u2"); err != nil || other != nil {
		t.Fatalf("expected nil state for other user, got %+v, %v", other, err)
	}

	if err := store.Clear(ctx, "t1", "u1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got, err := store.Get(ctx, "t1", "u1"); err != nil || got != nil {
		t.Fatalf("expected cleared state, got %+v, %v", got, err)
	}

	if err := store.Put(ctx, "t1", "u1", state); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	time.Sleep(1500 * time.Millisecond)
	if got, err := store.Get(ctx, "t1", "u1"); err != nil || got != nil {
		t.Fatalf("expected expired state, got %+v, %v", got, err)
	}
}

func TestOrderEventsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	producer := messaging.NewProducer(brokers, messaging.TopicOrderCreated)
	defer func() { _ = producer.Close() }()

	event := domain.OrderCreatedEvent{
		OrderID:   uuid.NewString(),
		TenantID:  "t1",
		UserID:    "u1",
		ShortCode: "A1B2C3D4",
		Total:     "25.00",
		Currency:  "USD",
		Items:     []domain.EventItem{{ProductID: "p1", Title: "Mug", Quantity: 2}},
		Timestamp: time.Now().UTC(),
	}
	if err := producer.Publish(ctx, event.OrderID, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderCreated, "test-consumer",
		messaging.WithStartOffset(segkafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.OrderCreatedEvent, 1)
	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()

	go func() {
		_ = consumer.Consume(consumeCtx, func(ctx context.Context, payload []byte) error {
			var got domain.OrderCreatedEvent
			if err := json.Unmarshal(payload, &got); err != nil {
				return err
			}
			received <- got
			return nil
		})
	}()

	select {
	case got := <-received:
		if got.OrderID != event.OrderID {
			t.Errorf("expected order %s, got %s", event.OrderID, got.OrderID)
		}
		if len(got.Items) != 1 || got.Items[0].Title != "Mug" {
			t.Errorf("unexpected items: %+v", got.Items)
		}
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
