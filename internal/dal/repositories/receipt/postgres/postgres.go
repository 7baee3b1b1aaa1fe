package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/receipt"
)

// ReceiptDal represents the receipt data access layer model.
type ReceiptDal struct {
	Id         int64     `db:"id"`
	OrderId    uuid.UUID `db:"order_id"`
	ReceiptUrl string    `db:"receipt_url"`
	CreatedAt  time.Time `db:"created_at"`
}

// ToModel converts ReceiptDal to the service layer Receipt model.
func (r *ReceiptDal) ToModel() *receipt.Receipt {
	return &receipt.Receipt{
		ID:         r.Id,
		OrderID:    r.OrderId,
		ReceiptURL: r.ReceiptUrl,
		CreatedAt:  r.CreatedAt,
	}
}

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx.
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresReceiptRepository represents a Postgres receipt repository.
type PostgresReceiptRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresReceiptRepository creates a new Postgres receipt repository.
func NewPostgresReceiptRepository(conn GenericConn) *PostgresReceiptRepository {
	return &PostgresReceiptRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert creates the receipt for an order. The order_id unique constraint
// plus ON CONFLICT DO NOTHING makes a second insert for the same order a
// no-op, so confirmation redelivery never creates a duplicate receipt. The
// existing receipt is returned either way.
func (r *PostgresReceiptRepository) Insert(
	ctx context.Context,
	orderID uuid.UUID,
	receiptURL string,
) (*receipt.Receipt, error) {
	sql, args, err := r.sb.
		Insert("order_receipts").
		Columns("order_id", "receipt_url", "created_at").
		Values(orderID, receiptURL, time.Now()).
		Suffix("ON CONFLICT (order_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return nil, fmt.Errorf("failed to insert receipt: %w", err)
	}

	return r.GetByOrderID(ctx, orderID)
}

// GetByOrderID retrieves the receipt of an order, or nil when none exists.
func (r *PostgresReceiptRepository) GetByOrderID(
	ctx context.Context,
	orderID uuid.UUID,
) (*receipt.Receipt, error) {
	sql, args, err := r.sb.
		Select("id", "order_id", "receipt_url", "created_at").
		From("order_receipts").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal ReceiptDal
	err = r.conn.QueryRow(ctx, sql, args...).Scan(
		&dal.Id,
		&dal.OrderId,
		&dal.ReceiptUrl,
		&dal.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	return dal.ToModel(), nil
}
