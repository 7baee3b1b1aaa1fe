package ireceiptrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/receipt"
)

// IReceiptRepository is an interface for the receipt postgres repository.
type IReceiptRepository interface {
	Insert(ctx context.Context, orderID uuid.UUID, receiptURL string) (*receipt.Receipt, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*receipt.Receipt, error)
}
