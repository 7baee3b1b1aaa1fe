package getorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/transport/http/httperr"
)

type service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// GetOrder handles the single order retrieval request.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	ord, err := service.GetOrder(r.Context(), id)
	if err != nil {
		slog.Error("Error getting order", "order_id", id, "error", err)
		httperr.Write(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ord); err != nil {
		slog.Error("Error sending response for get order", "error", err)
	}
}
