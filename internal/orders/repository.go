package orders

import "context"

// ProductSnapshot is the slice of a product the order logic reads under a
// row lock.
type ProductSnapshot struct {
	ID       int64
	Name     string
	Price    float64
	Quantity int64
}

// TxRepository exposes the data access needed inside an order transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductSnapshot, error)
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertItems(ctx context.Context, orderID int64, items []Item) error
	GetOrderForUpdate(ctx context.Context, orderID int64) (Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus, actorID int64) error
	SetProductQuantity(ctx context.Context, productID, quantity, actorID int64) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Get(ctx context.Context, id int64) (Order, error)
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status OrderStatus
	Limit  int
}
