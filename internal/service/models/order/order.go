package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/orderitem"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/receipt"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
)

// Order represents a customer order in the system. TotalAmountCents and
// TotalItems are derived from the item set at creation time and fixed
// afterwards; the item set itself is immutable after creation.
type Order struct {
	ID               uuid.UUID             `json:"id"`
	TotalAmountCents int64                 `json:"totalAmountCents"`
	TotalItems       int32                 `json:"totalItems"`
	Status           status.Status         `json:"status"`
	Paid             bool                  `json:"paid"`
	PaidAt           *time.Time            `json:"paidAt,omitempty"`
	StripeChargeID   *string               `json:"stripeChargeId,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
	OrderItems       []orderitem.OrderItem `json:"orderItems"`
	Receipt          *receipt.Receipt      `json:"receipt,omitempty"`
}
