package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"

	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
)

// Product is one catalog entry from a validate_products reply. PriceCents is
// the current catalog price at the time of the call.
type Product struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
}

// rpcCaller performs a blocking request/reply call over the message bus.
type rpcCaller interface {
	Call(ctx context.Context, routingKey string, body []byte) ([]byte, error)
}

// Client talks to the external product catalog service.
type Client struct {
	rpc        rpcCaller
	routingKey string
}

// NewClient creates a new catalog client.
func NewClient(rpc rpcCaller) *Client {
	routingKey := viper.GetString("catalog.routing_key")
	if routingKey == "" {
		routingKey = "catalog.validate_products"
	}

	return &Client{
		rpc:        rpc,
		routingKey: routingKey,
	}
}

type validateRequest struct {
	IDs []int64 `json:"ids"`
}

// ValidateProducts asks the catalog to validate and price the given product
// ids. Duplicates are removed before sending. The reply contains only entries
// for ids the catalog recognizes; the caller decides whether a short reply is
// an error. Transport failures surface as *orderserr.RemoteError and are not
// retried here.
func (c *Client) ValidateProducts(ctx context.Context, ids []int64) ([]Product, error) {
	seen := make(map[int64]struct{}, len(ids))
	distinct := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	body, err := json.Marshal(validateRequest{IDs: distinct})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validate request: %w", err)
	}

	reply, err := c.rpc.Call(ctx, c.routingKey, body)
	if err != nil {
		return nil, &orderserr.RemoteError{Target: c.routingKey, Err: err}
	}

	var products []Product
	if err := json.Unmarshal(reply, &products); err != nil {
		return nil, &orderserr.RemoteError{
			Target: c.routingKey,
			Err:    fmt.Errorf("malformed catalog reply: %w", err),
		}
	}

	return products, nil
}
