package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mercatolabs/order-orchestrator/internal/dal/interfaces/iorderitemrepo"
	"github.com/mercatolabs/order-orchestrator/internal/dal/interfaces/iorderrepo"
	"github.com/mercatolabs/order-orchestrator/internal/dal/interfaces/ireceiptrepo"
	"github.com/mercatolabs/order-orchestrator/internal/dal/postgres"
	orderrepo "github.com/mercatolabs/order-orchestrator/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/mercatolabs/order-orchestrator/internal/dal/repositories/orderitem/postgres"
	receiptrepo "github.com/mercatolabs/order-orchestrator/internal/dal/repositories/receipt/postgres"
)

// UnitOfWork scopes repository access to a single pgx transaction. Before
// Begin the repositories run directly against the pool.
type UnitOfWork struct {
	pool          *pgxpool.Pool
	tx            pgx.Tx
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	receiptRepo   ireceiptrepo.IReceiptRepository
}

// NewUnitOfWork creates a new unit of work over the given Postgres client.
func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	pool := client.Pool()

	return &UnitOfWork{
		pool:          pool,
		orderRepo:     orderrepo.NewPostgresOrderRepository(pool),
		orderItemRepo: orderitemrepo.NewPostgresOrderItemRepository(pool),
		receiptRepo:   receiptrepo.NewPostgresReceiptRepository(pool),
	}
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *UnitOfWork) ReceiptRepository() ireceiptrepo.IReceiptRepository {
	return u.receiptRepo
}

// Begin opens a transaction and rebinds the repositories to it.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewPostgresOrderRepository(tx)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(tx)
	u.receiptRepo = receiptrepo.NewPostgresReceiptRepository(tx)

	return nil
}

func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

// Rollback is a no-op after a successful Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Rollback(ctx)
}
