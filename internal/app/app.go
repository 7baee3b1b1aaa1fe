package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mercatolabs/order-orchestrator/internal/clients/catalog"
	"github.com/mercatolabs/order-orchestrator/internal/clients/payment"
	"github.com/mercatolabs/order-orchestrator/internal/dal/orderstore"
	"github.com/mercatolabs/order-orchestrator/internal/dal/postgres"
	"github.com/mercatolabs/order-orchestrator/internal/dal/rabbitmq"
	outboxrepo "github.com/mercatolabs/order-orchestrator/internal/dal/repositories/outbox/postgres"
	"github.com/mercatolabs/order-orchestrator/internal/otel"
	"github.com/mercatolabs/order-orchestrator/internal/service/services/ordersvc"
	"github.com/mercatolabs/order-orchestrator/internal/transport/consumer"
	httptransport "github.com/mercatolabs/order-orchestrator/internal/transport/http"
	outboxworker "github.com/mercatolabs/order-orchestrator/internal/worker/outbox"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	consumer       *consumer.Consumer
	transport      *httptransport.HTTPTransport
	outboxWorker   *outboxworker.Worker
	postgresClient *postgres.Client
	rabbitClient   *rabbitmq.Client
	otelController *otel.OtelController
	workerCancel   context.CancelFunc
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	rpcClient, err := rabbitmq.NewRPCClient(rabbitClient)
	if err != nil {
		panic(err)
	}

	store := orderstore.New(postgresClient)
	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient.Pool())

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithStore(store),
		ordersvc.WithCatalogClient(catalog.NewClient(rpcClient)),
		ordersvc.WithPaymentClient(payment.NewClient(rpcClient)),
		ordersvc.WithOutboxRepository(outboxRepository),
	)

	messageConsumer := consumer.NewConsumer(rabbitClient, orderSvc)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	worker := outboxworker.NewWorker(outboxRepository, rabbitClient)

	return &App{
		orderSvc:       orderSvc,
		consumer:       messageConsumer,
		transport:      transport,
		outboxWorker:   worker,
		postgresClient: postgresClient,
		rabbitClient:   rabbitClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	a.workerCancel = workerCancel

	go func() {
		slog.Info("Starting message consumer")
		if err := a.consumer.Run(workerCtx); err != nil {
			slog.Error("Message consumer error", "error", err)
		}
	}()

	go a.outboxWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.consumer.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	}

	a.workerCancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Tracer shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
