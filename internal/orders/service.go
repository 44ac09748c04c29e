package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates order operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds a Service. Audit is optional.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID int64
	Quantity  int64
}

// CreateInput carries the fields for creating an order.
type CreateInput struct {
	Customer string
	Note     string
	Items    []ItemInput
	ActorID  int64
}

// Create stores an order and its items in one transaction. Unit prices are
// snapshotted from the product at creation time and the total is computed
// server-side; client-supplied prices are never trusted.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, error) {
	if len(input.Items) == 0 {
		return Order{}, ErrNoItems
	}
	for _, it := range input.Items {
		if it.Quantity <= 0 {
			return Order{}, fmt.Errorf("orders: item quantity for product %d must be positive", it.ProductID)
		}
	}

	var created Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Lock products in id order so transactions touching the same
		// products never hold locks in opposite sequence.
		snapshots := make(map[int64]ProductSnapshot, len(input.Items))
		for _, id := range lockOrder(input.Items, func(it ItemInput) int64 { return it.ProductID }) {
			product, err := tx.GetProductForUpdate(ctx, id)
			if err != nil {
				return err
			}
			snapshots[id] = product
		}

		items := make([]Item, 0, len(input.Items))
		var total float64
		for _, it := range input.Items {
			product := snapshots[it.ProductID]
			item := Item{
				ProductID:    product.ID,
				ProductName:  product.Name,
				Quantity:     it.Quantity,
				PricePerUnit: product.Price,
			}
			total += item.LineTotal()
			items = append(items, item)
		}
		order := Order{
			Reference: uuid.NewString(),
			Status:    StatusPending,
			Customer:  input.Customer,
			Note:      input.Note,
			Total:     total,
			CreatedBy: input.ActorID,
		}
		id, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, id, items); err != nil {
			return err
		}
		order.ID = id
		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, input.ActorID, "order.create", created.ID, map[string]any{
		"reference": created.Reference,
		"total":     created.Total,
		"items":     len(created.Items),
	})
	return created, nil
}

// List returns orders filtered by status.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("orders: unknown status %q", filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Get fetches one order.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// Complete transitions a pending order to COMPLETED, deducting every line
// from product stock in the same transaction. An order that cannot be
// fulfilled is left untouched.
func (s *Service) Complete(ctx context.Context, orderID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return fmt.Errorf("order %d is %s: %w", orderID, order.Status, ErrInvalidTransition)
		}
		// Deduct in product-id order so two completions sharing products
		// cannot lock them in opposite sequence and deadlock.
		items := slices.Clone(order.Items)
		slices.SortStableFunc(items, func(a, b Item) int { return cmp.Compare(a.ProductID, b.ProductID) })
		for _, it := range items {
			product, err := tx.GetProductForUpdate(ctx, it.ProductID)
			if err != nil {
				return err
			}
			remaining := product.Quantity - it.Quantity
			if remaining < 0 {
				return fmt.Errorf("product %d has %d on hand, order needs %d: %w",
					product.ID, product.Quantity, it.Quantity, ErrInsufficientStock)
			}
			if err := tx.SetProductQuantity(ctx, product.ID, remaining, actorID); err != nil {
				return err
			}
		}
		return tx.SetOrderStatus(ctx, orderID, StatusCompleted, actorID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "order.complete", orderID, nil)
	return nil
}

// Cancel transitions a pending order to CANCELLED. Stock is untouched since
// pending orders never reserved any.
func (s *Service) Cancel(ctx context.Context, orderID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return fmt.Errorf("order %d is %s: %w", orderID, order.Status, ErrInvalidTransition)
		}
		return tx.SetOrderStatus(ctx, orderID, StatusCancelled, actorID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "order.cancel", orderID, nil)
	return nil
}

// lockOrder returns the distinct product ids of items sorted ascending,
// the sequence row locks must be taken in.
func lockOrder[T any](items []T, id func(T) int64) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, id(it))
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// IsClientError reports whether the error is the caller's fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoItems) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrInsufficientStock)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
