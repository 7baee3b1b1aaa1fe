package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/mercatolabs/order-orchestrator/internal/clients/payment"
	"github.com/mercatolabs/order-orchestrator/internal/dal/rabbitmq"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
	"github.com/mercatolabs/order-orchestrator/internal/service/services/ordersvc"
)

// Request/reply operation names carried in the message Type property.
const (
	OpCreateOrder       = "createOrder"
	OpFindAllOrders     = "findAllOrders"
	OpFindOneOrder      = "findOneOrder"
	OpChangeOrderStatus = "changeOrderStatus"
)

// service represents the orchestrator interface the consumer dispatches to.
type service interface {
	CreateOrder(ctx context.Context, items []ordersvc.NewOrderItem) (*order.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ListOrders(ctx context.Context, q order.Query) (*order.Page, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, st status.Status) (*order.Order, error)
	CreatePaymentSession(ctx context.Context, ord *order.Order) (*payment.Session, error)
	CompletePayment(ctx context.Context, orderID uuid.UUID, stripePaymentID, receiptURL string) (*order.Order, error)
}

// Consumer serves the order operations as request/reply over RabbitMQ and
// applies inbound payment confirmations.
type Consumer struct {
	client        *rabbitmq.Client
	service       service
	requestQueue  amqp.Queue
	paymentsQueue amqp.Queue
	stop          chan struct{}
	done          chan struct{}
}

// NewConsumer declares the request and payment-confirmation queues.
func NewConsumer(client *rabbitmq.Client, service service) *Consumer {
	requestQueueName := viper.GetString("rabbitmq.requests_queue")
	if requestQueueName == "" {
		requestQueueName = "orders.requests"
	}

	paymentsQueueName := viper.GetString("rabbitmq.payments_queue")
	if paymentsQueueName == "" {
		paymentsQueueName = "payments.succeeded"
	}

	requestQueue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       requestQueueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	paymentsQueue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       paymentsQueueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	return &Consumer{
		client:        client,
		service:       service,
		requestQueue:  requestQueue,
		paymentsQueue: paymentsQueue,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Run starts consuming both queues until Shutdown or ctx cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "order-orchestrator"
	}

	requests, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.requestQueue.Name,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	payments, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.paymentsQueue.Name,
		Consumer: consumerTag + "-payments",
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started",
		"requests_queue", c.requestQueue.Name,
		"payments_queue", c.paymentsQueue.Name,
		"consumer_tag", consumerTag,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-requests:
				if !ok {
					slog.Info("Request channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					c.processRequest(gctx, msg)

					return nil
				})
			case msg, ok := <-payments:
				if !ok {
					slog.Info("Payments channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					c.processPaymentConfirmation(gctx, msg)

					return nil
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processRequest handles one request/reply operation. The handler's result or
// failure is always replied; the delivery is always acked because a failed
// request is answered, not redelivered.
func (c *Consumer) processRequest(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer."+msg.Type)
	defer span.End()

	slog.Info("Received request", "op", msg.Type, "correlation_id", msg.CorrelationId)

	result, err := c.dispatch(ctx, msg)
	if err != nil {
		slog.Error("Request failed", "op", msg.Type, "error", err)
		c.reply(msg, errorEnvelope(err))
	} else {
		c.reply(msg, result)
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack request", "error", err)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg amqp.Delivery) (interface{}, error) {
	switch msg.Type {
	case OpCreateOrder:
		return c.handleCreateOrder(ctx, msg.Body)
	case OpFindAllOrders:
		return c.handleFindAllOrders(ctx, msg.Body)
	case OpFindOneOrder:
		return c.handleFindOneOrder(ctx, msg.Body)
	case OpChangeOrderStatus:
		return c.handleChangeOrderStatus(ctx, msg.Body)
	default:
		return nil, &unknownOpError{op: msg.Type}
	}
}

type createOrderRequest struct {
	Items []ordersvc.NewOrderItem `json:"items"`
}

// createOrderResponse carries the enriched order together with the payment
// session opened for it right after persistence.
type createOrderResponse struct {
	Order          *order.Order     `json:"order"`
	PaymentSession *payment.Session `json:"paymentSession"`
}

func (c *Consumer) handleCreateOrder(ctx context.Context, body []byte) (interface{}, error) {
	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &badRequestError{err: err}
	}

	ord, err := c.service.CreateOrder(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	session, err := c.service.CreatePaymentSession(ctx, ord)
	if err != nil {
		return nil, err
	}

	return createOrderResponse{Order: ord, PaymentSession: session}, nil
}

type findAllOrdersRequest struct {
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
	Status *string `json:"status,omitempty"`
}

func (c *Consumer) handleFindAllOrders(ctx context.Context, body []byte) (interface{}, error) {
	var req findAllOrdersRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &badRequestError{err: err}
	}

	q := order.Query{Page: req.Page, Limit: req.Limit}
	if req.Status != nil {
		st, err := status.Parse(*req.Status)
		if err != nil {
			return nil, err
		}
		q.Status = &st
	}

	return c.service.ListOrders(ctx, q)
}

type findOneOrderRequest struct {
	ID uuid.UUID `json:"id"`
}

func (c *Consumer) handleFindOneOrder(ctx context.Context, body []byte) (interface{}, error) {
	var req findOneOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &badRequestError{err: err}
	}

	return c.service.GetOrder(ctx, req.ID)
}

type changeOrderStatusRequest struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (c *Consumer) handleChangeOrderStatus(ctx context.Context, body []byte) (interface{}, error) {
	var req changeOrderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &badRequestError{err: err}
	}

	st, err := status.Parse(req.Status)
	if err != nil {
		return nil, err
	}

	return c.service.ChangeStatus(ctx, req.ID, st)
}

// paymentConfirmation is the authenticated confirmation event published by
// the payment service after a successful charge.
type paymentConfirmation struct {
	OrderID         uuid.UUID `json:"orderId"`
	StripePaymentID string    `json:"stripePaymentId"`
	ReceiptURL      string    `json:"receiptUrl"`
}

// processPaymentConfirmation applies a payment confirmation event. Malformed
// payloads are rejected; processing failures are requeued so the confirmation
// is retried. CompletePayment is safe under redelivery.
func (c *Consumer) processPaymentConfirmation(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.paymentConfirmation")
	defer span.End()

	var event paymentConfirmation
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		slog.Error("Failed to unmarshal payment confirmation", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if _, err := c.service.CompletePayment(ctx, event.OrderID, event.StripePaymentID, event.ReceiptURL); err != nil {
		slog.Error("Failed to complete payment", "order_id", event.OrderID, "error", err)
		if err := msg.Nack(false, true); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return
	}

	slog.Info("Payment confirmation applied", "order_id", event.OrderID)
}

// reply publishes the response back to the requester's reply queue.
func (c *Consumer) reply(msg amqp.Delivery, payload interface{}) {
	if msg.ReplyTo == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal reply", "op", msg.Type, "error", err)

		return
	}

	err = c.client.Channel().Publish(
		"",
		msg.ReplyTo,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: msg.CorrelationId,
			Body:          body,
		},
	)
	if err != nil {
		slog.Error("Failed to publish reply", "op", msg.Type, "error", err)
	}
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return "bad request: " + e.err.Error()
}

type unknownOpError struct {
	op string
}

func (e *unknownOpError) Error() string {
	return "unknown operation: " + e.op
}

type errorReply struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorEnvelope maps a handler failure onto the wire error envelope so
// callers can tell the failure classes apart.
func errorEnvelope(err error) errorReply {
	code := "INTERNAL"

	var productErr *orderserr.ProductNotFoundError
	var remoteErr *orderserr.RemoteError
	var badReq *badRequestError
	var unknownOp *unknownOpError

	switch {
	case errors.Is(err, orderserr.ErrOrderNotFound):
		code = "NOT_FOUND"
	case errors.As(err, &productErr):
		code = "PRODUCT_NOT_FOUND"
	case errors.As(err, &remoteErr):
		code = "REMOTE_ERROR"
	case errors.Is(err, status.ErrInvalidStatus):
		code = "INVALID_STATUS"
	case errors.As(err, &badReq), errors.As(err, &unknownOp):
		code = "BAD_REQUEST"
	}

	return errorReply{Error: err.Error(), Code: code}
}
