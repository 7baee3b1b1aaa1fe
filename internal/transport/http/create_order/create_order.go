package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mercatolabs/order-orchestrator/internal/clients/payment"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/services/ordersvc"
	"github.com/mercatolabs/order-orchestrator/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, items []ordersvc.NewOrderItem) (*order.Order, error)
	CreatePaymentSession(ctx context.Context, ord *order.Order) (*payment.Session, error)
}

type createOrderRequest struct {
	Items []ordersvc.NewOrderItem `json:"items"`
}

type createOrderResponse struct {
	Order          *order.Order     `json:"order"`
	PaymentSession *payment.Session `json:"paymentSession"`
}

// CreateOrder handles the order creation request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	ord, err := service.CreateOrder(r.Context(), req.Items)
	if err != nil {
		slog.Error("Error creating order", "error", err)
		httperr.Write(w, err)

		return
	}

	session, err := service.CreatePaymentSession(r.Context(), ord)
	if err != nil {
		slog.Error("Error creating payment session", "order_id", ord.ID, "error", err)
		httperr.Write(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createOrderResponse{Order: ord, PaymentSession: session}); err != nil {
		slog.Error("Error sending response for create order", "error", err)
	}
}
