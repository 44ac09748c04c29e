package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocklane-erp/stocklane/internal/shared"
	_ "github.com/stocklane-erp/stocklane/testing"
)

type memoryRepo struct {
	products  map[int64]ProductState
	movements map[int64]Movement
	deleted   map[int64]bool
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(products ...ProductState) *memoryRepo {
	repo := &memoryRepo{
		products:  make(map[int64]ProductState),
		movements: make(map[int64]Movement),
		deleted:   make(map[int64]bool),
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	var out []Movement
	for id, m := range r.movements {
		if r.deleted[id] {
			continue
		}
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) GetMovement(ctx context.Context, id int64) (Movement, error) {
	m, ok := r.movements[id]
	if !ok || r.deleted[id] {
		return Movement{}, fmt.Errorf("movement %d: %w", id, shared.ErrNotFound)
	}
	return m, nil
}

func (t *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error) {
	p, ok := t.repo.products[productID]
	if !ok {
		return ProductState{}, fmt.Errorf("product %d: %w", productID, shared.ErrNotFound)
	}
	return p, nil
}

func (t *memoryTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	t.repo.nextID++
	m.ID = t.repo.nextID
	t.repo.movements[m.ID] = m
	return m.ID, nil
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

func (t *memoryTx) SoftDeleteMovement(ctx context.Context, movementID, actorID int64) error {
	if _, ok := t.repo.movements[movementID]; !ok || t.repo.deleted[movementID] {
		return fmt.Errorf("movement %d: %w", movementID, shared.ErrNotFound)
	}
	t.repo.deleted[movementID] = true
	return nil
}

type recordingNotifier struct {
	events []LowStockEvent
}

func (n *recordingNotifier) NotifyLowStock(ctx context.Context, event LowStockEvent) error {
	n.events = append(n.events, event)
	return nil
}

func TestMovementsAdjustQuantity(t *testing.T) {
	repo := newMemoryRepo(ProductState{ID: 1, Name: "Widget", Quantity: 0, StockMinimum: 0})
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	movement, err := svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementIn, Quantity: 10, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(10), repo.products[1].Quantity)
	require.Equal(t, "Widget", movement.ProductName)

	_, err = uuid.Parse(movement.Reference)
	require.NoError(t, err)

	_, err = svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementOut, Quantity: 4, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(6), repo.products[1].Quantity)
}

func TestOutboundRefusesNegativeStock(t *testing.T) {
	repo := newMemoryRepo(ProductState{ID: 1, Name: "Widget", Quantity: 3})
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CreateMovement(context.Background(), MovementInput{ProductID: 1, Type: MovementOut, Quantity: 4, ActorID: 7})
	require.ErrorIs(t, err, ErrInsufficientStock)
	// Nothing committed: quantity unchanged, no movement recorded.
	require.Equal(t, int64(3), repo.products[1].Quantity)
	movements, err := repo.ListMovements(context.Background(), MovementFilter{})
	require.NoError(t, err)
	require.Empty(t, movements)
}

func TestInvalidMovementInput(t *testing.T) {
	repo := newMemoryRepo(ProductState{ID: 1, Name: "Widget", Quantity: 3})
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementIn, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: "SIDEWAYS", Quantity: 1})
	require.Error(t, err)

	_, err = svc.CreateMovement(ctx, MovementInput{ProductID: 99, Type: MovementIn, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLowStockNotificationFiresOnCrossing(t *testing.T) {
	repo := newMemoryRepo(ProductState{ID: 1, Name: "Widget", Quantity: 10, StockMinimum: 5})
	notifier := &recordingNotifier{}
	svc := NewService(repo, nil, notifier, nil)
	ctx := context.Background()

	// 10 -> 6, still above minimum.
	_, err := svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementOut, Quantity: 4, ActorID: 7})
	require.NoError(t, err)
	require.Empty(t, notifier.events)

	// 6 -> 4 crosses the minimum.
	_, err = svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementOut, Quantity: 2, ActorID: 7})
	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	require.Equal(t, int64(4), notifier.events[0].Quantity)
	require.Equal(t, int64(5), notifier.events[0].StockMinimum)

	// Already below minimum: no repeat notification.
	_, err = svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementOut, Quantity: 1, ActorID: 7})
	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
}

func TestReverseMovement(t *testing.T) {
	repo := newMemoryRepo(ProductState{ID: 1, Name: "Widget", Quantity: 0})
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	in, err := svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementIn, Quantity: 10, ActorID: 7})
	require.NoError(t, err)
	out, err := svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementOut, Quantity: 3, ActorID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.products[1].Quantity)

	require.NoError(t, svc.ReverseMovement(ctx, out.ID, 7))
	require.Equal(t, int64(10), repo.products[1].Quantity)

	_, err = svc.GetMovement(ctx, out.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	// Reversing the inbound would leave 0; allowed.
	require.NoError(t, svc.ReverseMovement(ctx, in.ID, 7))
	require.Equal(t, int64(0), repo.products[1].Quantity)
}

func TestReverseInboundRefusedWhenStockConsumed(t *testing.T) {
	repo := newMemoryRepo(ProductState{ID: 1, Name: "Widget", Quantity: 0})
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	in, err := svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementIn, Quantity: 10, ActorID: 7})
	require.NoError(t, err)
	_, err = svc.CreateMovement(ctx, MovementInput{ProductID: 1, Type: MovementOut, Quantity: 5, ActorID: 7})
	require.NoError(t, err)

	err = svc.ReverseMovement(ctx, in.ID, 7)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, int64(5), repo.products[1].Quantity)
}
