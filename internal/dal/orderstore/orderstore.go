package orderstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mercatolabs/order-orchestrator/internal/dal/postgres"
	"github.com/mercatolabs/order-orchestrator/internal/dal/uow"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/orderitem"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
)

// Store persists orders with their items. All multi-row writes go through a
// unit of work so an order and its items land atomically or not at all.
type Store struct {
	pgClient *postgres.Client
}

// New creates a new order store over the given Postgres client.
func New(pgClient *postgres.Client) *Store {
	return &Store{pgClient: pgClient}
}

func (s *Store) newUOW() *uow.UnitOfWork {
	return uow.NewUnitOfWork(s.pgClient)
}

// CreateOrderWithItems writes the order and all its items in one transaction.
func (s *Store) CreateOrderWithItems(ctx context.Context, ord order.Order) (*order.Order, error) {
	now := time.Now()
	ord.CreatedAt = now
	ord.UpdatedAt = now
	if ord.Status == "" {
		ord.Status = status.StatusPending
	}

	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	inserted, err := work.OrderRepository().Insert(ctx, ord)
	if err != nil {
		return nil, err
	}

	items := make([]orderitem.OrderItem, len(ord.OrderItems))
	for i, item := range ord.OrderItems {
		item.OrderID = inserted.ID
		item.CreatedAt = now
		item.UpdatedAt = now
		items[i] = item
	}

	items, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	inserted.OrderItems = items

	return inserted, nil
}

// FindByID retrieves an order with its items and receipt.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	work := s.newUOW()

	ord, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orderserr.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := work.OrderItemRepository().QueryByOrderIDs(ctx, []uuid.UUID{ord.ID})
	if err != nil {
		return nil, err
	}
	ord.OrderItems = items

	rcpt, err := work.ReceiptRepository().GetByOrderID(ctx, ord.ID)
	if err != nil {
		return nil, err
	}
	ord.Receipt = rcpt

	return ord, nil
}

// List retrieves one page of orders matching the optional status filter,
// items attached, plus pagination metadata.
func (s *Store) List(ctx context.Context, q order.Query) (*order.Page, error) {
	work := s.newUOW()

	total, err := work.OrderRepository().Count(ctx, q.Status)
	if err != nil {
		return nil, err
	}

	orders, err := work.OrderRepository().Query(ctx, &q)
	if err != nil {
		return nil, err
	}

	if len(orders) > 0 {
		orderIDs := make([]uuid.UUID, len(orders))
		for i, o := range orders {
			orderIDs[i] = o.ID
		}

		items, err := work.OrderItemRepository().QueryByOrderIDs(ctx, orderIDs)
		if err != nil {
			return nil, err
		}

		for i := range orders {
			for _, item := range items {
				if item.OrderID == orders[i].ID {
					orders[i].OrderItems = append(orders[i].OrderItems, item)
				}
			}
		}
	} else {
		orders = []order.Order{}
	}

	return &order.Page{
		Data: orders,
		Meta: order.NewMeta(q.Page, q.Limit, total),
	}, nil
}

// UpdateStatus sets a new status on an order.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, st status.Status) (*order.Order, error) {
	work := s.newUOW()

	ord, err := work.OrderRepository().UpdateStatus(ctx, id, st)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orderserr.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return ord, nil
}

// RecordPayment marks the order paid and creates its receipt in one
// transaction. Applying the same confirmation twice leaves the order in the
// same final state with exactly one receipt.
func (s *Store) RecordPayment(
	ctx context.Context,
	id uuid.UUID,
	stripeChargeID string,
	receiptURL string,
) (*order.Order, error) {
	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	ord, err := work.OrderRepository().MarkPaid(ctx, id, stripeChargeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orderserr.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	rcpt, err := work.ReceiptRepository().Insert(ctx, id, receiptURL)
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ord.Receipt = rcpt

	items, err := s.newUOW().OrderItemRepository().QueryByOrderIDs(ctx, []uuid.UUID{ord.ID})
	if err != nil {
		return nil, err
	}
	ord.OrderItems = items

	return ord, nil
}
