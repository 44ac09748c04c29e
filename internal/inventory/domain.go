package inventory

import (
	"errors"
	"time"
)

// MovementType distinguishes stock entering from stock leaving.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// Valid reports whether the movement type is one of the known values.
func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut
}

var (
	// ErrInvalidQuantity indicates a non-positive movement quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInsufficientStock indicates an outbound movement that would drive
	// the product quantity below zero.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Movement is one stock mutation. Movements are append-only; a reversal
// records the correction while the original row is retained soft-deleted.
type Movement struct {
	ID          int64        `json:"id"`
	Reference   string       `json:"reference"`
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name"`
	Type        MovementType `json:"type"`
	Quantity    int64        `json:"quantity"`
	Note        string       `json:"note"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ProductState is the slice of a product the movement logic needs, read
// under a row lock inside the movement transaction.
type ProductState struct {
	ID           int64
	Name         string
	Quantity     int64
	StockMinimum int64
}
