package orders

import (
	"errors"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether the status is one of the known values.
func (s OrderStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusCancelled
}

var (
	// ErrNoItems indicates an order without a single line item.
	ErrNoItems = errors.New("orders: at least one item required")
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("orders: invalid status transition")
	// ErrInsufficientStock indicates completion would drive a product
	// quantity below zero.
	ErrInsufficientStock = errors.New("orders: insufficient stock")
)

// Order is a customer order with its line items. Total is always recomputed
// server-side from the snapshotted unit prices.
type Order struct {
	ID        int64       `json:"id"`
	Reference string      `json:"reference"`
	Status    OrderStatus `json:"status"`
	Customer  string      `json:"customer"`
	Note      string      `json:"note"`
	Total     float64     `json:"total"`
	Items     []Item      `json:"items"`
	CreatedBy int64       `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Item is one order line. PricePerUnit is the product price at order time;
// later price changes never alter an existing order.
type Item struct {
	ID           int64   `json:"id"`
	OrderID      int64   `json:"order_id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int64   `json:"quantity"`
	PricePerUnit float64 `json:"price_per_unit"`
}

// LineTotal is the item subtotal.
func (i Item) LineTotal() float64 {
	return float64(i.Quantity) * i.PricePerUnit
}
