package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/mercatolabs/order-orchestrator/internal/service/models/currency"
	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
)

// SessionItem is one priced line forwarded to the payment service.
type SessionItem struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int32  `json:"quantity"`
}

// SessionRequest asks the payment service to open a payable session for a
// persisted order.
type SessionRequest struct {
	OrderID  uuid.UUID         `json:"orderId"`
	Currency currency.Currency `json:"currency"`
	Items    []SessionItem     `json:"items"`
}

// Session is the payment service's session reference. Nothing here is
// persisted by this core.
type Session struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CancelURL  string `json:"cancelUrl,omitempty"`
	SuccessURL string `json:"successUrl,omitempty"`
}

// rpcCaller performs a blocking request/reply call over the message bus.
type rpcCaller interface {
	Call(ctx context.Context, routingKey string, body []byte) ([]byte, error)
}

// Client talks to the external payment service.
type Client struct {
	rpc        rpcCaller
	routingKey string
}

// NewClient creates a new payment client.
func NewClient(rpc rpcCaller) *Client {
	routingKey := viper.GetString("payment.routing_key")
	if routingKey == "" {
		routingKey = "payment.create_session"
	}

	return &Client{
		rpc:        rpc,
		routingKey: routingKey,
	}
}

// CreateSession opens a payment session for an already-persisted order.
// Transport failures surface as *orderserr.RemoteError, not retried here.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	reply, err := c.rpc.Call(ctx, c.routingKey, body)
	if err != nil {
		return nil, &orderserr.RemoteError{Target: c.routingKey, Err: err}
	}

	var session Session
	if err := json.Unmarshal(reply, &session); err != nil {
		return nil, &orderserr.RemoteError{
			Target: c.routingKey,
			Err:    fmt.Errorf("malformed payment reply: %w", err),
		}
	}

	return &session, nil
}
