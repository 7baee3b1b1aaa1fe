package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mercatolabs/order-orchestrator/internal/service/models/order"
	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
	"github.com/mercatolabs/order-orchestrator/internal/transport/http/httperr"
)

type service interface {
	ListOrders(ctx context.Context, q order.Query) (*order.Page, error)
}

// ListOrders handles the paginated order listing request.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	q := order.Query{Page: 1, Limit: 10}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)

			return
		}
		q.Page = page
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)

			return
		}
		q.Limit = limit
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := status.Parse(raw)
		if err != nil {
			httperr.Write(w, err)

			return
		}
		q.Status = &st
	}

	page, err := service.ListOrders(r.Context(), q)
	if err != nil {
		slog.Error("Error listing orders", "error", err)
		httperr.Write(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(page); err != nil {
		slog.Error("Error sending response for list orders", "error", err)
	}
}
