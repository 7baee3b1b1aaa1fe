package iorderrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, ord order.Order) (*order.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Query(ctx context.Context, filter *order.Query) ([]order.Order, error)
	Count(ctx context.Context, st *status.Status) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, st status.Status) (*order.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, stripeChargeID string) (*order.Order, error)
}
