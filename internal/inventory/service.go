package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock movements.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	notifier LowStockNotifier
	logger   *slog.Logger
}

// NewService builds a Service. Audit and notifier are optional.
func NewService(repo RepositoryPort, audit AuditPort, notifier LowStockNotifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier, logger: logger}
}

// MovementInput carries the fields for posting a movement.
type MovementInput struct {
	ProductID int64
	Type      MovementType
	Quantity  int64
	Note      string
	ActorID   int64
}

// CreateMovement posts a stock movement. Locking the product row, inserting
// the movement and adjusting the quantity happen in one transaction: the
// quantity a reader observes always matches the committed movement history.
// Outbound movements that would drive the quantity negative are refused.
func (s *Service) CreateMovement(ctx context.Context, input MovementInput) (Movement, error) {
	if !input.Type.Valid() {
		return Movement{}, fmt.Errorf("inventory: unknown movement type %q", input.Type)
	}
	if input.Quantity <= 0 {
		return Movement{}, ErrInvalidQuantity
	}

	movement := Movement{
		Reference: uuid.NewString(),
		ProductID: input.ProductID,
		Type:      input.Type,
		Quantity:  input.Quantity,
		Note:      input.Note,
		CreatedBy: input.ActorID,
	}
	var crossedMinimum bool
	var state ProductState

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		state, err = tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		newQty := state.Quantity + input.Quantity
		if input.Type == MovementOut {
			newQty = state.Quantity - input.Quantity
			if newQty < 0 {
				return fmt.Errorf("product %d has %d on hand, requested %d: %w",
					state.ID, state.Quantity, input.Quantity, ErrInsufficientStock)
			}
		}
		crossedMinimum = state.Quantity >= state.StockMinimum && newQty < state.StockMinimum
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id
		if err := tx.SetProductQuantity(ctx, state.ID, newQty, input.ActorID); err != nil {
			return err
		}
		state.Quantity = newQty
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	movement.ProductName = state.Name

	if crossedMinimum && s.notifier != nil {
		event := LowStockEvent{
			ProductID:    state.ID,
			ProductName:  state.Name,
			Quantity:     state.Quantity,
			StockMinimum: state.StockMinimum,
		}
		if err := s.notifier.NotifyLowStock(ctx, event); err != nil && s.logger != nil {
			// The periodic scan picks the product up anyway.
			s.logger.Warn("notify low stock", slog.Int64("product_id", state.ID), slog.Any("error", err))
		}
	}
	s.record(ctx, input.ActorID, "stock.movement."+string(input.Type), movement.ID, map[string]any{
		"product_id": input.ProductID,
		"quantity":   input.Quantity,
		"reference":  movement.Reference,
	})
	return movement, nil
}

// ListMovements lists movement history.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("inventory: unknown movement type %q", filter.Type)
	}
	return s.repo.ListMovements(ctx, filter)
}

// GetMovement fetches one movement.
func (s *Service) GetMovement(ctx context.Context, id int64) (Movement, error) {
	return s.repo.GetMovement(ctx, id)
}

// ReverseMovement undoes a mistaken entry: the original row is soft-deleted
// and the product quantity restored, all in one transaction. Reversing an IN
// fails with ErrInsufficientStock when the stock has since been consumed.
func (s *Service) ReverseMovement(ctx context.Context, movementID, actorID int64) error {
	movement, err := s.repo.GetMovement(ctx, movementID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		state, err := tx.GetProductForUpdate(ctx, movement.ProductID)
		if err != nil {
			return err
		}
		newQty := state.Quantity + movement.Quantity
		if movement.Type == MovementIn {
			newQty = state.Quantity - movement.Quantity
			if newQty < 0 {
				return fmt.Errorf("reversal of movement %d: %w", movementID, ErrInsufficientStock)
			}
		}
		if err := tx.SoftDeleteMovement(ctx, movementID, actorID); err != nil {
			return err
		}
		return tx.SetProductQuantity(ctx, state.ID, newQty, actorID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "stock.movement.reverse", movementID, map[string]any{
		"product_id": movement.ProductID,
		"reference":  movement.Reference,
	})
	return nil
}

// IsClientError reports whether the error is the caller's fault. Used by the
// handler to map movement refusals to 400 instead of 500.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrInsufficientStock)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_movement",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
