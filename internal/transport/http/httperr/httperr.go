package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mercatolabs/order-orchestrator/internal/service/models/status"
	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
)

type response struct {
	Error string `json:"error"`
}

// Write maps a service failure onto an HTTP status and a JSON error body.
func Write(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError

	var productErr *orderserr.ProductNotFoundError
	var remoteErr *orderserr.RemoteError

	switch {
	case errors.Is(err, orderserr.ErrOrderNotFound):
		code = http.StatusNotFound
	case errors.As(err, &productErr):
		code = http.StatusBadRequest
	case errors.Is(err, status.ErrInvalidStatus):
		code = http.StatusBadRequest
	case errors.As(err, &remoteErr):
		code = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response{Error: err.Error()})
}
