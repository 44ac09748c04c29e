package delivery

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a delivery.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInTransit || s == StatusDelivered
}

// next returns the only status a delivery may advance to, or "" at the end
// of the lifecycle.
func (s Status) next() Status {
	switch s {
	case StatusPending:
		return StatusInTransit
	case StatusInTransit:
		return StatusDelivered
	default:
		return ""
	}
}

// ErrInvalidTransition indicates a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("delivery: invalid status transition")

// Delivery ships a completed order to an address.
type Delivery struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Address   string    `json:"address"`
	Status    Status    `json:"status"`
	Note      string    `json:"note"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
