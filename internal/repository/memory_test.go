package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestMemoryProducts_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	products := NewMemoryProducts(store)

	p := domain.Product{Name: "A", Price: decimal.NewFromInt(10), Stock: 5, Category: "General"}
	require.NoError(t, products.Create(ctx, &p))
	assert.Equal(t, int64(1), p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	p.Price = decimal.NewFromInt(12)
	require.NoError(t, products.Update(ctx, &p))

	require.NoError(t, products.Delete(ctx, p.ID))
	_, err = products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, products.Delete(ctx, p.ID), ErrNotFound)
	assert.ErrorIs(t, products.Update(ctx, &p), ErrNotFound)
}

func TestMemoryStore_IDsNeverReused(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	products := NewMemoryProducts(store)

	first := domain.Product{Name: "A"}
	require.NoError(t, products.Create(ctx, &first))
	require.NoError(t, products.Delete(ctx, first.ID))

	second := domain.Product{Name: "B"}
	require.NoError(t, products.Create(ctx, &second))
	assert.Equal(t, int64(2), second.ID)

	// counters are per kind
	c := domain.Category{Name: "Books"}
	require.NoError(t, NewMemoryCategories(store).Create(ctx, &c))
	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, int64(2), store.NextID(ctx, KindCategory))
}

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	products := NewMemoryProducts(store)
	carts := NewMemoryCarts(store)

	p := domain.Product{Name: "A"}
	require.NoError(t, products.Create(ctx, &p))
	require.NoError(t, carts.Save(ctx, &domain.Cart{UserID: 7}))

	store.Reset()

	list, err := products.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = carts.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	again := domain.Product{Name: "B"}
	require.NoError(t, products.Create(ctx, &again))
	assert.Equal(t, int64(1), again.ID)
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	products := NewMemoryProducts(store)
	orders := NewMemoryOrders(store)

	// seed product
	p := domain.Product{Name: "A", Price: decimal.NewFromInt(10), Stock: 5}
	require.NoError(t, products.Create(ctx, &p))

	// emulate atomic create order with stock decrease
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		pp, err := products.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		pp.Stock -= 3
		if err := products.Update(ctx, pp); err != nil {
			return err
		}
		// nested transactions reuse the held lock
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			o := domain.Order{UserID: 1, Items: []domain.OrderItem{{ProductID: p.ID, Quantity: 3}}, Status: domain.OrderStatusPending}
			return orders.Create(ctx, &o)
		})
	})
	require.NoError(t, err)

	pp, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pp.Stock)
}

func TestMemoryProducts_ListByCategory(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryProducts(NewMemoryStore())
	for _, p := range []domain.Product{
		{Name: "Aspirin", Category: "Health"},
		{Name: "Novel", Category: "Books"},
		{Name: "Ibuprofen", Category: "health"},
	} {
		require.NoError(t, products.Create(ctx, &p))
	}

	list, err := products.List(ctx, ProductFilter{Category: "HEALTH"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Aspirin", list[0].Name)
	assert.Equal(t, "Ibuprofen", list[1].Name)

	all, err := products.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestMemoryCarts_CopiesDoNotAlias(t *testing.T) {
	ctx := context.Background()
	carts := NewMemoryCarts(NewMemoryStore())

	c := domain.Cart{UserID: 1, Items: []domain.CartItem{{ProductID: 1, Quantity: 1}}}
	require.NoError(t, carts.Save(ctx, &c))
	c.Items[0].Quantity = 99

	got, err := carts.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Items[0].Quantity)
}

func TestMemoryOrders_UpdateKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryOrders(NewMemoryStore())

	o := domain.Order{UserID: 1, Items: []domain.OrderItem{{ProductID: 1, Quantity: 2}}, Total: decimal.NewFromInt(20), Status: domain.OrderStatusPending}
	require.NoError(t, orders.Create(ctx, &o))

	o.Status = domain.OrderStatusShipped
	o.Total = decimal.NewFromInt(1)
	o.Items = nil
	require.NoError(t, orders.Update(ctx, &o))

	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, got.Status)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(20)))
	assert.Len(t, got.Items, 1)

	uid := int64(2)
	list, err := orders.List(ctx, OrderFilter{UserID: &uid})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryReviews_AuthorIndex(t *testing.T) {
	ctx := context.Background()
	reviews := NewMemoryReviews(NewMemoryStore())

	r := domain.Review{UserID: 1, ProductID: 2, Rating: 5}
	require.NoError(t, reviews.Create(ctx, &r))

	got, err := reviews.GetByUserAndProduct(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	require.NoError(t, reviews.Delete(ctx, r.ID))
	_, err = reviews.GetByUserAndProduct(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCategories_GetByNameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	categories := NewMemoryCategories(NewMemoryStore())

	c := domain.Category{Name: "Electronics"}
	require.NoError(t, categories.Create(ctx, &c))

	got, err := categories.GetByName(ctx, "eLeCtRoNiCs")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = categories.GetByName(ctx, "Toys")
	assert.ErrorIs(t, err, ErrNotFound)
}
