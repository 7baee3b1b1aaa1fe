package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/orderitem"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
)

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id               uuid.UUID  `db:"id"`
	TotalAmountCents int64      `db:"total_amount_cents"`
	TotalItems       int32      `db:"total_items"`
	Status           string     `db:"status"`
	Paid             bool       `db:"paid"`
	PaidAt           *time.Time `db:"paid_at"`
	StripeChargeId   *string    `db:"stripe_charge_id"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	st, err := status.Parse(o.Status)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:               o.Id,
		TotalAmountCents: o.TotalAmountCents,
		TotalItems:       o.TotalItems,
		Status:           st,
		Paid:             o.Paid,
		PaidAt:           o.PaidAt,
		StripeChargeID:   o.StripeChargeId,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		OrderItems:       []orderitem.OrderItem{}, // populated separately
	}, nil
}

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx.
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var orderColumns = []string{
	"id",
	"total_amount_cents",
	"total_items",
	"status",
	"paid",
	"paid_at",
	"stripe_charge_id",
	"created_at",
	"updated_at",
}

func (r *PostgresOrderRepository) scanOrder(row pgx.Row) (*order.Order, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.Id,
		&dal.TotalAmountCents,
		&dal.TotalItems,
		&dal.Status,
		&dal.Paid,
		&dal.PaidAt,
		&dal.StripeChargeId,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return dal.ToModel()
}

// Insert writes a single order row and returns it with the generated id.
func (r *PostgresOrderRepository) Insert(ctx context.Context, ord order.Order) (*order.Order, error) {
	sql, args, err := r.sb.
		Insert("orders").
		Columns("total_amount_cents", "total_items", "status", "created_at", "updated_at").
		Values(ord.TotalAmountCents, ord.TotalItems, ord.Status.String(), ord.CreatedAt, ord.UpdatedAt).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := r.scanOrder(r.conn.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	return inserted, nil
}

// GetByID retrieves a single order row. Returns pgx.ErrNoRows when absent.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	sql, args, err := r.sb.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.scanOrder(r.conn.QueryRow(ctx, sql, args...))
}

// Query retrieves orders with an optional status filter, in creation order.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.Query) ([]order.Order, error) {
	query := r.sb.
		Select(orderColumns...).
		From("orders").
		OrderBy("created_at ASC")

	if filter.Status != nil {
		query = query.Where(sq.Eq{"status": filter.Status.String()})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset() > 0 {
		query = query.Offset(uint64(filter.Offset()))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		model, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Count returns the number of orders matching the optional status filter.
func (r *PostgresOrderRepository) Count(ctx context.Context, st *status.Status) (int64, error) {
	query := r.sb.Select("COUNT(*)").From("orders")
	if st != nil {
		query = query.Where(sq.Eq{"status": st.String()})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return total, nil
}

// UpdateStatus sets a new status on an order and returns the updated row.
func (r *PostgresOrderRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	st status.Status,
) (*order.Order, error) {
	sql, args, err := r.sb.
		Update("orders").
		Set("status", st.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	return r.scanOrder(r.conn.QueryRow(ctx, sql, args...))
}

// MarkPaid records payment confirmation on the order row. Rewrites the same
// values on redelivery, which keeps the operation idempotent.
func (r *PostgresOrderRepository) MarkPaid(
	ctx context.Context,
	id uuid.UUID,
	stripeChargeID string,
) (*order.Order, error) {
	now := time.Now()

	sql, args, err := r.sb.
		Update("orders").
		Set("status", status.StatusPaid.String()).
		Set("paid", true).
		// keep the original confirmation time on redelivery
		Set("paid_at", sq.Expr("COALESCE(paid_at, ?)", now)).
		Set("stripe_charge_id", stripeChargeID).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	return r.scanOrder(r.conn.QueryRow(ctx, sql, args...))
}

func columnList() string {
	list := orderColumns[0]
	for _, col := range orderColumns[1:] {
		list += ", " + col
	}

	return list
}
