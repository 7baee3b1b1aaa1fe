package ordersvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/mercatolabs/order-orchestrator/internal/clients/catalog"
	"github.com/mercatolabs/order-orchestrator/internal/clients/payment"
	"github.com/mercatolabs/order-orchestrator/internal/dal/interfaces/ioutboxrepo"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/currency"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/orderitem"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/outbox"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
)

// orderStore is the persistence boundary of the orchestrator.
type orderStore interface {
	CreateOrderWithItems(ctx context.Context, ord order.Order) (*order.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	List(ctx context.Context, q order.Query) (*order.Page, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, st status.Status) (*order.Order, error)
	RecordPayment(ctx context.Context, id uuid.UUID, stripeChargeID, receiptURL string) (*order.Order, error)
}

// catalogClient validates and prices product ids against the catalog service.
type catalogClient interface {
	ValidateProducts(ctx context.Context, ids []int64) ([]catalog.Product, error)
}

// paymentClient opens payment sessions with the payment service.
type paymentClient interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

// OrderService orchestrates the order lifecycle: creation against the
// catalog, persistence, status transitions and payment confirmation. It holds
// no state across requests; consistency lives in the store's transactions.
type OrderService struct {
	store    orderStore
	catalog  catalogClient
	payment  paymentClient
	outbox   ioutboxrepo.IOutboxRepository
	currency currency.Currency
}

// NewOrderItem is one requested line of a new order, before pricing.
type NewOrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	cur, err := currency.ParseCurrency(viper.GetString("payment.currency"))
	if err != nil {
		cur = currency.CurrencyUSD
	}

	s := &OrderService{currency: cur}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithStore sets the order store for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStore(store orderStore) option {
	return func(s *OrderService) {
		s.store = store
	}
}

// WithCatalogClient sets the catalog client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCatalogClient(client catalogClient) option {
	return func(s *OrderService) {
		s.catalog = client
	}
}

// WithPaymentClient sets the payment client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentClient(client paymentClient) option {
	return func(s *OrderService) {
		s.payment = client
	}
}

// WithOutboxRepository sets the outbox repository used for post-payment
// event publication.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutboxRepository(repo ioutboxrepo.IOutboxRepository) option {
	return func(s *OrderService) {
		s.outbox = repo
	}
}

// CreateOrder validates the requested products against the catalog, computes
// totals from catalog prices, persists the order with its items atomically
// and returns it with product names merged in. Either a fully-priced,
// fully-persisted order comes back or nothing is written.
func (s *OrderService) CreateOrder(ctx context.Context, items []NewOrderItem) (*order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.ValidateProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	prices := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		prices[p.ID] = p
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &orderserr.ProductNotFoundError{ProductIDs: missing}
	}

	var totalAmount int64
	var totalItems int32
	orderItems := make([]orderitem.OrderItem, 0, len(items))
	for _, item := range items {
		p := prices[item.ProductID]
		totalAmount += p.PriceCents * int64(item.Quantity)
		totalItems += item.Quantity
		orderItems = append(orderItems, orderitem.OrderItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceCents: p.PriceCents,
		})
	}

	ord, err := s.store.CreateOrderWithItems(ctx, order.Order{
		TotalAmountCents: totalAmount,
		TotalItems:       totalItems,
		Status:           status.StatusPending,
		OrderItems:       orderItems,
	})
	if err != nil {
		return nil, err
	}

	s.mergeProductNames(ord, prices)

	return ord, nil
}

// GetOrder fetches an order and re-resolves product names from the catalog.
// Names are never persisted; prices on the items stay the creation-time
// snapshot regardless of what the catalog returns today.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	ord, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(ord.OrderItems) == 0 {
		return ord, nil
	}

	ids := make([]int64, 0, len(ord.OrderItems))
	for _, item := range ord.OrderItems {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.ValidateProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	prices := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		prices[p.ID] = p
	}

	s.mergeProductNames(ord, prices)

	return ord, nil
}

// mergeProductNames joins catalog names onto the order's items by product id.
// A persisted product id the catalog no longer recognizes keeps an empty name
// rather than failing the read.
func (s *OrderService) mergeProductNames(ord *order.Order, products map[int64]catalog.Product) {
	for i := range ord.OrderItems {
		p, ok := products[ord.OrderItems[i].ProductID]
		if !ok {
			slog.Warn("Product missing from catalog reply, leaving name empty",
				"order_id", ord.ID,
				"product_id", ord.OrderItems[i].ProductID,
			)
			continue
		}
		ord.OrderItems[i].ProductName = p.Name
	}
}

// ListOrders retrieves one page of orders, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, q order.Query) (*order.Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	return s.store.List(ctx, q)
}

// ChangeStatus moves an order to a new status. Setting the status it already
// has is an idempotent no-op with no store write. Any recognized status may
// transition to any other.
func (s *OrderService) ChangeStatus(ctx context.Context, id uuid.UUID, st status.Status) (*order.Order, error) {
	// defensive re-check even though validation happens upstream
	st, err := status.Parse(st.String())
	if err != nil {
		return nil, err
	}

	ord, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if ord.Status == st {
		return ord, nil
	}

	updated, err := s.store.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}

	updated.OrderItems = ord.OrderItems
	updated.Receipt = ord.Receipt

	return updated, nil
}

// CreatePaymentSession asks the payment service for a session covering the
// order's priced, named items. The session reference is returned as-is and
// never persisted. The order must already be durably stored.
func (s *OrderService) CreatePaymentSession(ctx context.Context, ord *order.Order) (*payment.Session, error) {
	items := make([]payment.SessionItem, 0, len(ord.OrderItems))
	for _, item := range ord.OrderItems {
		items = append(items, payment.SessionItem{
			Name:       item.ProductName,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
		})
	}

	return s.payment.CreateSession(ctx, payment.SessionRequest{
		OrderID:  ord.ID,
		Currency: s.currency,
		Items:    items,
	})
}

// CompletePayment applies an external payment confirmation: the order is
// marked paid and its receipt created. The write is applied unconditionally
// so a redelivered confirmation settles into the same final state.
func (s *OrderService) CompletePayment(
	ctx context.Context,
	orderID uuid.UUID,
	stripePaymentID string,
	receiptURL string,
) (*order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.CompletePayment")
	defer span.End()

	ord, err := s.store.RecordPayment(ctx, orderID, stripePaymentID, receiptURL)
	if err != nil {
		return nil, err
	}

	s.enqueuePaidEvent(ctx, ord)

	return ord, nil
}

// enqueuePaidEvent records an order.paid event in the outbox for downstream
// consumers. Event delivery is best effort and never fails the confirmation.
func (s *OrderService) enqueuePaidEvent(ctx context.Context, ord *order.Order) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(ord)
	if err != nil {
		slog.Error("Failed to marshal order for paid event", "order_id", ord.ID, "error", err)

		return
	}

	now := time.Now()
	msg := outbox.Message{
		ExchangeName: viper.GetString("rabbitmq.events.exchange"),
		RoutingKey:   "order.paid",
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   viper.GetInt("rabbitmq.events.max_retries"),
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}
	if msg.MaxRetries == 0 {
		msg.MaxRetries = 10
	}

	if err := s.outbox.Insert(ctx, msg); err != nil {
		slog.Error("Failed to enqueue order.paid event", "order_id", ord.ID, "error", err)
	}
}
