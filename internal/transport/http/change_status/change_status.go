package changestatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
	"github.com/mercatolabs/order-orchestrator/internal/transport/http/httperr"
)

type service interface {
	ChangeStatus(ctx context.Context, id uuid.UUID, st status.Status) (*order.Order, error)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus handles the order status transition request.
func ChangeStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for change status", "error", err)

		return
	}

	st, err := status.Parse(req.Status)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	ord, err := service.ChangeStatus(r.Context(), id, st)
	if err != nil {
		slog.Error("Error changing order status", "order_id", id, "error", err)
		httperr.Write(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ord); err != nil {
		slog.Error("Error sending response for change status", "error", err)
	}
}
