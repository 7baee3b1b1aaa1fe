package receipt

import (
	"time"

	"github.com/google/uuid"
)

// Receipt is created exactly once per order, on payment confirmation.
type Receipt struct {
	ID         int64     `json:"id"`
	OrderID    uuid.UUID `json:"orderId"`
	ReceiptURL string    `json:"receiptUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}
