package ordersvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/order-orchestrator/internal/clients/catalog"
	"github.com/mercatolabs/order-orchestrator/internal/clients/payment"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/orderitem"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/receipt"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
)

// --- Mocks ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateOrderWithItems(ctx context.Context, ord order.Order) (*order.Order, error) {
	args := m.Called(ctx, ord)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, q order.Query) (*order.Page, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Page), args.Error(1)
}

func (m *MockStore) UpdateStatus(ctx context.Context, id uuid.UUID, st status.Status) (*order.Order, error) {
	args := m.Called(ctx, id, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockStore) RecordPayment(ctx context.Context, id uuid.UUID, stripeChargeID, receiptURL string) (*order.Order, error) {
	args := m.Called(ctx, id, stripeChargeID, receiptURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ValidateProducts(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

type MockPayment struct {
	mock.Mock
}

func (m *MockPayment) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func newService(store *MockStore, cat *MockCatalog, pay *MockPayment) *OrderService {
	return MustNewOrderService(
		WithStore(store),
		WithCatalogClient(cat),
		WithPaymentClient(pay),
	)
}

// --- Tests ---

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_TotalsFromCatalogPrices", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		cat.On("ValidateProducts", mock.Anything, []int64{1, 2}).Return([]catalog.Product{
			{ID: 1, Name: "Widget", PriceCents: 500},
			{ID: 2, Name: "Gadget", PriceCents: 250},
		}, nil)

		persisted := &order.Order{
			ID:               uuid.New(),
			TotalAmountCents: 1250,
			TotalItems:       3,
			Status:           status.StatusPending,
			OrderItems: []orderitem.OrderItem{
				{ProductID: 1, Quantity: 2, PriceCents: 500},
				{ProductID: 2, Quantity: 1, PriceCents: 250},
			},
		}
		store.On("CreateOrderWithItems", mock.Anything, mock.MatchedBy(func(ord order.Order) bool {
			return ord.TotalAmountCents == 1250 &&
				ord.TotalItems == 3 &&
				ord.Status == status.StatusPending &&
				len(ord.OrderItems) == 2
		})).Return(persisted, nil)

		ord, err := svc.CreateOrder(ctx, []NewOrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1250), ord.TotalAmountCents)
		assert.Equal(t, int32(3), ord.TotalItems)
		assert.Equal(t, "Widget", ord.OrderItems[0].ProductName)
		assert.Equal(t, "Gadget", ord.OrderItems[1].ProductName)
		store.AssertExpectations(t)
		cat.AssertExpectations(t)
	})

	t.Run("UnknownProduct_FailsWithoutPersisting", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		cat.On("ValidateProducts", mock.Anything, []int64{1, 7}).Return([]catalog.Product{
			{ID: 1, Name: "Widget", PriceCents: 500},
		}, nil)

		_, err := svc.CreateOrder(ctx, []NewOrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 7, Quantity: 1},
		})
		require.Error(t, err)

		var productErr *orderserr.ProductNotFoundError
		require.ErrorAs(t, err, &productErr)
		assert.Equal(t, []int64{7}, productErr.ProductIDs)
		store.AssertNotCalled(t, "CreateOrderWithItems", mock.Anything, mock.Anything)
	})

	t.Run("CatalogFailure_Propagates", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		remoteErr := &orderserr.RemoteError{Target: "catalog.validate_products", Err: errors.New("timeout")}
		cat.On("ValidateProducts", mock.Anything, []int64{1}).Return(nil, remoteErr)

		_, err := svc.CreateOrder(ctx, []NewOrderItem{{ProductID: 1, Quantity: 1}})
		require.Error(t, err)

		var re *orderserr.RemoteError
		assert.ErrorAs(t, err, &re)
		store.AssertNotCalled(t, "CreateOrderWithItems", mock.Anything, mock.Anything)
	})

	t.Run("StoreFailure_Propagates", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		cat.On("ValidateProducts", mock.Anything, []int64{1}).Return([]catalog.Product{
			{ID: 1, Name: "Widget", PriceCents: 500},
		}, nil)
		store.On("CreateOrderWithItems", mock.Anything, mock.Anything).Return(nil, errors.New("db error"))

		_, err := svc.CreateOrder(ctx, []NewOrderItem{{ProductID: 1, Quantity: 1}})
		assert.Error(t, err)
	})
}

func TestOrderService_GetOrder(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("Success_NamesResolvedPricesSnapshot", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		store.On("FindByID", ctx, orderID).Return(&order.Order{
			ID:               orderID,
			TotalAmountCents: 1000,
			TotalItems:       2,
			Status:           status.StatusPending,
			OrderItems:       []orderitem.OrderItem{{ProductID: 1, Quantity: 2, PriceCents: 500}},
		}, nil)

		// catalog price changed since creation; the item keeps its snapshot
		cat.On("ValidateProducts", ctx, []int64{1}).Return([]catalog.Product{
			{ID: 1, Name: "Widget", PriceCents: 999},
		}, nil)

		ord, err := svc.GetOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, "Widget", ord.OrderItems[0].ProductName)
		assert.Equal(t, int64(500), ord.OrderItems[0].PriceCents)
		assert.Equal(t, int64(1000), ord.TotalAmountCents)
	})

	t.Run("NotFound", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		store.On("FindByID", ctx, orderID).Return(nil, orderserr.ErrOrderNotFound)

		_, err := svc.GetOrder(ctx, orderID)
		assert.ErrorIs(t, err, orderserr.ErrOrderNotFound)
	})

	t.Run("CatalogDrift_NameLeftEmpty", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		store.On("FindByID", ctx, orderID).Return(&order.Order{
			ID:         orderID,
			Status:     status.StatusPending,
			OrderItems: []orderitem.OrderItem{{ProductID: 42, Quantity: 1, PriceCents: 100}},
		}, nil)
		cat.On("ValidateProducts", ctx, []int64{42}).Return([]catalog.Product{}, nil)

		ord, err := svc.GetOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Empty(t, ord.OrderItems[0].ProductName)
		assert.Equal(t, int64(100), ord.OrderItems[0].PriceCents)
	})
}

func TestOrderService_ChangeStatus(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	current := func() *order.Order {
		return &order.Order{
			ID:         orderID,
			Status:     status.StatusPending,
			OrderItems: []orderitem.OrderItem{{ProductID: 1, Quantity: 1, PriceCents: 500}},
		}
	}
	catalogReply := []catalog.Product{{ID: 1, Name: "Widget", PriceCents: 500}}

	t.Run("SameStatus_NoStoreWrite", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		store.On("FindByID", ctx, orderID).Return(current(), nil)
		cat.On("ValidateProducts", ctx, []int64{1}).Return(catalogReply, nil)

		ord, err := svc.ChangeStatus(ctx, orderID, status.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, status.StatusPending, ord.Status)
		store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NewStatus_Updates", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		store.On("FindByID", ctx, orderID).Return(current(), nil)
		cat.On("ValidateProducts", ctx, []int64{1}).Return(catalogReply, nil)
		store.On("UpdateStatus", ctx, orderID, status.StatusDelivered).Return(&order.Order{
			ID:     orderID,
			Status: status.StatusDelivered,
		}, nil)

		ord, err := svc.ChangeStatus(ctx, orderID, status.StatusDelivered)
		require.NoError(t, err)
		assert.Equal(t, status.StatusDelivered, ord.Status)
		// items from the resolved read carry over onto the updated order
		assert.Equal(t, "Widget", ord.OrderItems[0].ProductName)
		store.AssertExpectations(t)
	})

	t.Run("UnrecognizedStatus_Rejected", func(t *testing.T) {
		store := new(MockStore)
		cat := new(MockCatalog)
		svc := newService(store, cat, nil)

		_, err := svc.ChangeStatus(ctx, orderID, status.Status("SHIPPED"))
		assert.ErrorIs(t, err, status.ErrInvalidStatus)
		store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsApplied", func(t *testing.T) {
		store := new(MockStore)
		svc := newService(store, nil, nil)

		store.On("List", ctx, order.Query{Page: 1, Limit: 10}).Return(&order.Page{
			Data: []order.Order{},
			Meta: order.Meta{Page: 1, Total: 0, LastPage: 0},
		}, nil)

		page, err := svc.ListOrders(ctx, order.Query{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Meta.Page)
		store.AssertExpectations(t)
	})

	t.Run("StatusFilterPassedThrough", func(t *testing.T) {
		store := new(MockStore)
		svc := newService(store, nil, nil)

		paid := status.StatusPaid
		q := order.Query{Page: 2, Limit: 10, Status: &paid}
		store.On("List", ctx, q).Return(&order.Page{
			Data: make([]order.Order, 10),
			Meta: order.NewMeta(2, 10, 25),
		}, nil)

		page, err := svc.ListOrders(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Meta.LastPage)
		assert.Equal(t, int64(25), page.Meta.Total)
	})
}

func TestOrderService_CreatePaymentSession(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("ForwardsNamedPricedItems", func(t *testing.T) {
		pay := new(MockPayment)
		svc := newService(nil, nil, pay)

		ord := &order.Order{
			ID: orderID,
			OrderItems: []orderitem.OrderItem{
				{ProductID: 1, ProductName: "Widget", Quantity: 2, PriceCents: 500},
			},
		}

		pay.On("CreateSession", ctx, mock.MatchedBy(func(req payment.SessionRequest) bool {
			return req.OrderID == orderID &&
				len(req.Items) == 1 &&
				req.Items[0].Name == "Widget" &&
				req.Items[0].PriceCents == 500 &&
				req.Items[0].Quantity == 2
		})).Return(&payment.Session{ID: "sess_1", URL: "https://pay.example/sess_1"}, nil)

		session, err := svc.CreatePaymentSession(ctx, ord)
		require.NoError(t, err)
		assert.Equal(t, "sess_1", session.ID)
		pay.AssertExpectations(t)
	})

	t.Run("RemoteFailure_Propagates", func(t *testing.T) {
		pay := new(MockPayment)
		svc := newService(nil, nil, pay)

		remoteErr := &orderserr.RemoteError{Target: "payment.create_session", Err: errors.New("down")}
		pay.On("CreateSession", ctx, mock.Anything).Return(nil, remoteErr)

		_, err := svc.CreatePaymentSession(ctx, &order.Order{ID: orderID})
		var re *orderserr.RemoteError
		assert.ErrorAs(t, err, &re)
	})
}

func TestOrderService_CompletePayment(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()
	paidAt := time.Now()

	paidOrder := func() *order.Order {
		chargeID := "ch_123"
		return &order.Order{
			ID:             orderID,
			Status:         status.StatusPaid,
			Paid:           true,
			PaidAt:         &paidAt,
			StripeChargeID: &chargeID,
			Receipt:        &receipt.Receipt{OrderID: orderID, ReceiptURL: "https://receipts.example/r1"},
		}
	}

	t.Run("MarksPaidWithReceipt", func(t *testing.T) {
		store := new(MockStore)
		svc := newService(store, nil, nil)

		store.On("RecordPayment", mock.Anything, orderID, "ch_123", "https://receipts.example/r1").
			Return(paidOrder(), nil)

		ord, err := svc.CompletePayment(ctx, orderID, "ch_123", "https://receipts.example/r1")
		require.NoError(t, err)
		assert.True(t, ord.Paid)
		assert.Equal(t, status.StatusPaid, ord.Status)
		assert.NotNil(t, ord.PaidAt)
		assert.NotNil(t, ord.Receipt)
	})

	t.Run("Redelivery_SameFinalState", func(t *testing.T) {
		store := new(MockStore)
		svc := newService(store, nil, nil)

		store.On("RecordPayment", mock.Anything, orderID, "ch_123", "https://receipts.example/r1").
			Return(paidOrder(), nil).Twice()

		first, err := svc.CompletePayment(ctx, orderID, "ch_123", "https://receipts.example/r1")
		require.NoError(t, err)

		second, err := svc.CompletePayment(ctx, orderID, "ch_123", "https://receipts.example/r1")
		require.NoError(t, err)

		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.PaidAt, second.PaidAt)
		assert.Equal(t, first.Receipt, second.Receipt)
		store.AssertExpectations(t)
	})

	t.Run("StoreFailure_Propagates", func(t *testing.T) {
		store := new(MockStore)
		svc := newService(store, nil, nil)

		store.On("RecordPayment", mock.Anything, orderID, "ch_x", "u").Return(nil, errors.New("db error"))

		_, err := svc.CompletePayment(ctx, orderID, "ch_x", "u")
		assert.Error(t, err)
	})
}
