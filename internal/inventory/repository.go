package inventory

import "context"

// TxRepository exposes the data access needed inside a movement transaction.
type TxRepository interface {
	// GetProductForUpdate locks the product row for the rest of the
	// transaction and returns its current state.
	GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	SetProductQuantity(ctx context.Context, productID, quantity, actorID int64) error
	SoftDeleteMovement(ctx context.Context, movementID, actorID int64) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	GetMovement(ctx context.Context, id int64) (Movement, error)
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	Limit     int
}
