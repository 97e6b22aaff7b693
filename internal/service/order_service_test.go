package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"
)

type fixture struct {
	store      *repository.MemoryStore
	products   *ProductService
	categories *CategoryService
	carts      *CartService
	orders     *OrderService
	reviews    *ReviewService
	users      *UserService
	events     *events.Recorder
}

func setup(t *testing.T, opts ...OrderOption) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	tx := repository.NewMemoryTx(store)
	productsRepo := repository.NewMemoryProducts(store)
	ordersRepo := repository.NewMemoryOrders(store)
	cartsRepo := repository.NewMemoryCarts(store)
	rec := &events.Recorder{}

	opts = append([]OrderOption{WithPublisher(rec, "test")}, opts...)
	return &fixture{
		store:      store,
		products:   NewProductService(productsRepo, tx),
		categories: NewCategoryService(repository.NewMemoryCategories(store), tx),
		carts:      NewCartService(cartsRepo, productsRepo, tx),
		orders:     NewOrderService(productsRepo, ordersRepo, cartsRepo, tx, opts...),
		reviews:    NewReviewService(repository.NewMemoryReviews(store), productsRepo, ordersRepo, tx),
		users:      NewUserService(repository.NewMemoryUsers(store), tx, plainHasher{}),
		events:     rec,
	}
}

func (f *fixture) product(t *testing.T, name, price string, stock int64) *domain.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), domain.Product{
		Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "General",
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func (f *fixture) stock(t *testing.T, id int64) int64 {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get product %d: %v", id, err)
	}
	return p.Stock
}

func TestCreateOrderAndCancel(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p1 := f.product(t, "A", "10.00", 5)
	p2 := f.product(t, "B", "20.00", 2)

	if _, err := f.carts.AddItem(ctx, 1, p1.ID, 3); err != nil {
		t.Fatalf("add p1: %v", err)
	}
	if _, err := f.carts.AddItem(ctx, 1, p2.ID, 2); err != nil {
		t.Fatalf("add p2: %v", err)
	}

	o, err := f.orders.CreateFromCart(ctx, 1)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if o.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", o.Status)
	}
	if !o.Total.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected total 70, got %s", o.Total)
	}

	// stocks decreased, cart emptied
	if f.stock(t, p1.ID) != 2 || f.stock(t, p2.ID) != 0 {
		t.Fatalf("stock not decreased: %d %d", f.stock(t, p1.ID), f.stock(t, p2.ID))
	}
	cart, _ := f.carts.Get(ctx, 1)
	if len(cart.Items) != 0 {
		t.Fatalf("cart not emptied: %+v", cart.Items)
	}

	o2, err := f.orders.CancelOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if o2.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled")
	}
	if f.stock(t, p1.ID) != 5 || f.stock(t, p2.ID) != 2 {
		t.Fatalf("stock not restored: %d %d", f.stock(t, p1.ID), f.stock(t, p2.ID))
	}

	// second cancel is rejected and restores nothing
	if _, err := f.orders.CancelOrder(ctx, o.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if f.stock(t, p1.ID) != 5 {
		t.Fatalf("stock restored twice: %d", f.stock(t, p1.ID))
	}

	got := f.events.Types()
	want := []events.Type{events.OrderCreated, events.OrderCancelled}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events: got %v want %v", got, want)
	}
}

func TestCreateOrder_SnapshotsLivePrice(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", "10.00", 5)
	if _, err := f.carts.AddItem(ctx, 1, p.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	price := decimal.RequireFromString("12.50")
	if _, err := f.products.Update(ctx, p.ID, ProductPatch{Price: &price}); err != nil {
		t.Fatalf("update: %v", err)
	}

	o, err := f.orders.CreateFromCart(ctx, 1)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !o.Items[0].UnitPrice.Equal(price) || !o.Total.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected live price snapshot, got %s / %s", o.Items[0].UnitPrice, o.Total)
	}

	// later catalog edits do not touch the order
	name := "renamed"
	if _, err := f.products.Update(ctx, p.ID, ProductPatch{Name: &name}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	again, _ := f.orders.GetOrder(ctx, o.ID)
	if again.Items[0].ProductName != "A" {
		t.Fatalf("snapshot changed: %s", again.Items[0].ProductName)
	}
}

func TestCreateOrder_NotEnoughStockIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p1 := f.product(t, "A", "10", 5)
	p2 := f.product(t, "B", "10", 3)
	if _, err := f.carts.AddItem(ctx, 1, p1.ID, 2); err != nil {
		t.Fatalf("add p1: %v", err)
	}
	if _, err := f.carts.AddItem(ctx, 1, p2.ID, 3); err != nil {
		t.Fatalf("add p2: %v", err)
	}
	// stock drops after the item was carted
	if _, err := f.products.AdjustStock(ctx, p2.ID, -2); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	_, err := f.orders.CreateFromCart(ctx, 1)
	if !errors.Is(err, ErrNotEnoughStock) {
		t.Fatalf("expected not enough stock, got %v", err)
	}
	if f.stock(t, p1.ID) != 5 || f.stock(t, p2.ID) != 1 {
		t.Fatalf("partial decrement: %d %d", f.stock(t, p1.ID), f.stock(t, p2.ID))
	}
	cart, _ := f.carts.Get(ctx, 1)
	if len(cart.Items) != 2 {
		t.Fatalf("cart changed: %+v", cart.Items)
	}
	if list, _ := f.orders.ListOrders(ctx, nil); len(list) != 0 {
		t.Fatalf("order created: %+v", list)
	}
	if len(f.events.Events()) != 0 {
		t.Fatalf("event published for failed order")
	}
}

func TestCreateOrder_DeletedProduct(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", "10", 5)
	if _, err := f.carts.AddItem(ctx, 1, p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.products.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.orders.CreateFromCart(ctx, 1); !errors.Is(err, ErrNotEnoughStock) {
		t.Fatalf("expected not enough stock, got %v", err)
	}
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	if _, err := f.orders.CreateFromCart(ctx, 1); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart, got %v", err)
	}
	if _, err := f.carts.Get(ctx, 1); err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if _, err := f.orders.CreateFromCart(ctx, 1); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart, got %v", err)
	}
}

func TestCreateOrder_ConcurrentCheckoutNeverOversells(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", "1", 10)

	const buyers = 8
	for u := int64(1); u <= buyers; u++ {
		if _, err := f.carts.AddItem(ctx, u, p.ID, 3); err != nil {
			t.Fatalf("add for %d: %v", u, err)
		}
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for u := int64(1); u <= buyers; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			if _, err := f.orders.CreateFromCart(ctx, u); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else if !errors.Is(err, ErrNotEnoughStock) {
				t.Errorf("user %d: %v", u, err)
			}
		}(u)
	}
	wg.Wait()

	if ok != 3 {
		t.Fatalf("expected 3 successful orders, got %d", ok)
	}
	if f.stock(t, p.ID) != 1 {
		t.Fatalf("expected stock 1, got %d", f.stock(t, p.ID))
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", "5", 5)
	if _, err := f.carts.AddItem(ctx, 1, p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	o, err := f.orders.CreateFromCart(ctx, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// non-strict mode allows any jump between live statuses
	if _, err := f.orders.SetStatus(ctx, o.ID, domain.OrderStatusDelivered); err != nil {
		t.Fatalf("set delivered: %v", err)
	}
	if _, err := f.orders.SetStatus(ctx, o.ID, domain.OrderStatusPending); err != nil {
		t.Fatalf("set pending: %v", err)
	}
	if _, err := f.orders.SetStatus(ctx, o.ID, "lost"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := f.orders.SetStatus(ctx, o.ID, domain.OrderStatusCancelled); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for cancelled target, got %v", err)
	}
	if _, err := f.orders.SetStatus(ctx, 999, domain.OrderStatusShipped); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := f.orders.CancelOrder(ctx, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.orders.SetStatus(ctx, o.ID, domain.OrderStatusPending); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state after cancel, got %v", err)
	}
}

func TestSetStatus_Strict(t *testing.T) {
	ctx := context.Background()
	f := setup(t, WithStrictTransitions(true))
	p := f.product(t, "A", "5", 5)
	if _, err := f.carts.AddItem(ctx, 1, p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	o, _ := f.orders.CreateFromCart(ctx, 1)

	if _, err := f.orders.SetStatus(ctx, o.ID, domain.OrderStatusShipped); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	for _, s := range []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		if _, err := f.orders.SetStatus(ctx, o.ID, s); err != nil {
			t.Fatalf("set %s: %v", s, err)
		}
	}
	if _, err := f.orders.CancelOrder(ctx, o.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("delivered order cancelled: %v", err)
	}
}

func TestCancelOrder_SkipsDeletedProduct(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p1 := f.product(t, "A", "5", 5)
	p2 := f.product(t, "B", "5", 5)
	for _, id := range []int64{p1.ID, p2.ID} {
		if _, err := f.carts.AddItem(ctx, 1, id, 2); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	o, err := f.orders.CreateFromCart(ctx, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.products.Delete(ctx, p1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.orders.CancelOrder(ctx, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.stock(t, p2.ID) != 5 {
		t.Fatalf("expected p2 restored, got %d", f.stock(t, p2.ID))
	}
}

func TestListOrders_ByUser(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", "1", 10)
	for _, u := range []int64{1, 2, 1} {
		if _, err := f.carts.AddItem(ctx, u, p.ID, 1); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := f.orders.CreateFromCart(ctx, u); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	uid := int64(1)
	mine, _ := f.orders.ListOrders(ctx, &uid)
	all, _ := f.orders.ListOrders(ctx, nil)
	if len(mine) != 2 || len(all) != 3 {
		t.Fatalf("got %d mine, %d all", len(mine), len(all))
	}
	if mine[0].ID >= mine[1].ID {
		t.Fatalf("orders out of order: %d %d", mine[0].ID, mine[1].ID)
	}
}

func TestExportOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", "2.50", 4)
	if _, err := f.carts.AddItem(ctx, 1, p.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	o, _ := f.orders.CreateFromCart(ctx, 1)

	doc, err := f.orders.ExportOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.ID != o.ID || len(doc.Items) != 1 || doc.Items[0].Quantity != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if _, err := f.orders.ExportOrder(ctx, 404); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
