package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklane-erp/stocklane/internal/shared"
	_ "github.com/stocklane-erp/stocklane/testing"
)

type memoryRepo struct {
	products map[int64]ProductSnapshot
	orders   map[int64]Order
	nextID   int64
	locked   []int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(products ...ProductSnapshot) *memoryRepo {
	repo := &memoryRepo{
		products: make(map[int64]ProductSnapshot),
		orders:   make(map[int64]Order),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range r.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	return o, nil
}

func (t *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (ProductSnapshot, error) {
	p, ok := t.repo.products[productID]
	if !ok {
		return ProductSnapshot{}, fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	t.repo.locked = append(t.repo.locked, productID)
	return p, nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	t.repo.nextID++
	o.ID = t.repo.nextID
	t.repo.orders[o.ID] = o
	return o.ID, nil
}

func (t *memoryTx) InsertItems(ctx context.Context, orderID int64, items []Item) error {
	o := t.repo.orders[orderID]
	o.Items = items
	t.repo.orders[orderID] = o
	return nil
}

func (t *memoryTx) GetOrderForUpdate(ctx context.Context, orderID int64) (Order, error) {
	return t.repo.Get(ctx, orderID)
}

func (t *memoryTx) SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus, actorID int64) error {
	o, ok := t.repo.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, shared.ErrNotFound)
	}
	o.Status = status
	t.repo.orders[orderID] = o
	return nil
}

func (t *memoryTx) SetProductQuantity(ctx context.Context, productID, quantity, actorID int64) error {
	p, ok := t.repo.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	p.Quantity = quantity
	t.repo.products[productID] = p
	return nil
}

func TestCreateSnapshotsPricesAndComputesTotal(t *testing.T) {
	repo := newMemoryRepo(
		ProductSnapshot{ID: 1, Name: "Widget", Price: 2.5, Quantity: 100},
		ProductSnapshot{ID: 2, Name: "Gadget", Price: 10, Quantity: 100},
	)
	svc := NewService(repo, nil, nil)

	order, err := svc.Create(context.Background(), CreateInput{
		Customer: "ACME",
		Items: []ItemInput{
			{ProductID: 1, Quantity: 4},
			{ProductID: 2, Quantity: 1},
		},
		ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.InDelta(t, 20.0, order.Total, 0.0001)
	require.Len(t, order.Items, 2)
	require.InDelta(t, 2.5, order.Items[0].PricePerUnit, 0.0001)
	require.NotEmpty(t, order.Reference)

	// A later price change does not touch the stored snapshot.
	p := repo.products[1]
	p.Price = 99
	repo.products[1] = p
	stored, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.InDelta(t, 2.5, stored.Items[0].PricePerUnit, 0.0001)
	require.InDelta(t, 20.0, stored.Total, 0.0001)
}

func TestCreateRequiresItems(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{Customer: "ACME"})
	require.ErrorIs(t, err, ErrNoItems)

	_, err = svc.Create(context.Background(), CreateInput{
		Customer: "ACME",
		Items:    []ItemInput{{ProductID: 1, Quantity: 0}},
	})
	require.Error(t, err)
}

func TestCompleteDeductsStock(t *testing.T) {
	repo := newMemoryRepo(ProductSnapshot{ID: 1, Name: "Widget", Price: 5, Quantity: 10})
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateInput{
		Customer: "ACME",
		Items:    []ItemInput{{ProductID: 1, Quantity: 6}},
		ActorID:  7,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, order.ID, 7))
	require.Equal(t, int64(4), repo.products[1].Quantity)

	stored, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)

	// Completing twice is refused.
	require.ErrorIs(t, svc.Complete(ctx, order.ID, 7), ErrInvalidTransition)
}

func TestCompleteRefusedOnInsufficientStock(t *testing.T) {
	repo := newMemoryRepo(ProductSnapshot{ID: 1, Name: "Widget", Price: 5, Quantity: 3})
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateInput{
		Customer: "ACME",
		Items:    []ItemInput{{ProductID: 1, Quantity: 5}},
		ActorID:  7,
	})
	require.NoError(t, err)

	err = svc.Complete(ctx, order.ID, 7)
	require.ErrorIs(t, err, ErrInsufficientStock)

	stored, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
}

func TestLocksProductsInIDOrder(t *testing.T) {
	repo := newMemoryRepo(
		ProductSnapshot{ID: 1, Name: "Widget", Price: 5, Quantity: 10},
		ProductSnapshot{ID: 2, Name: "Gadget", Price: 3, Quantity: 10},
		ProductSnapshot{ID: 3, Name: "Gizmo", Price: 7, Quantity: 10},
	)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	// Items arrive in descending product order; rows must still be locked
	// ascending, or two concurrent orders over the same products could each
	// wait on the other's lock.
	order, err := svc.Create(ctx, CreateInput{
		Customer: "ACME",
		Items: []ItemInput{
			{ProductID: 3, Quantity: 1},
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, repo.locked)

	// Item order as requested survives the reordering of the locks.
	require.Equal(t, int64(3), order.Items[0].ProductID)
	require.Equal(t, int64(1), order.Items[1].ProductID)

	repo.locked = nil
	require.NoError(t, svc.Complete(ctx, order.ID, 7))
	require.Equal(t, []int64{1, 2, 3}, repo.locked)
	require.Equal(t, int64(8), repo.products[1].Quantity)
	require.Equal(t, int64(9), repo.products[2].Quantity)
	require.Equal(t, int64(9), repo.products[3].Quantity)
}

func TestCancelOnlyFromPending(t *testing.T) {
	repo := newMemoryRepo(ProductSnapshot{ID: 1, Name: "Widget", Price: 5, Quantity: 10})
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateInput{
		Customer: "ACME",
		Items:    []ItemInput{{ProductID: 1, Quantity: 1}},
		ActorID:  7,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, order.ID, 7))
	require.Equal(t, int64(10), repo.products[1].Quantity)

	require.ErrorIs(t, svc.Cancel(ctx, order.ID, 7), ErrInvalidTransition)
	require.ErrorIs(t, svc.Complete(ctx, order.ID, 7), ErrInvalidTransition)
}
