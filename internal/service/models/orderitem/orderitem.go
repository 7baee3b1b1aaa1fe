package orderitem

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem represents a line item within an order. PriceCents is a snapshot
// of the catalog price at order-creation time and is never recomputed.
// ProductName is resolved from the catalog on every read and never persisted.
type OrderItem struct {
	ID          int64     `json:"id"`
	OrderID     uuid.UUID `json:"orderId"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Quantity    int32     `json:"quantity"`
	PriceCents  int64     `json:"priceCents"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
