package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// RPCClient performs blocking request/reply calls over AMQP. Every call
// publishes to a routing key with a correlation id and an exclusive reply
// queue, then waits for the single matching reply. The async transport never
// leaks past Call.
type RPCClient struct {
	client     *Client
	replyQueue string

	mu      sync.Mutex
	pending map[string]chan []byte
}

// NewRPCClient declares the exclusive reply queue and starts the reply
// dispatch loop.
func NewRPCClient(client *Client) (*RPCClient, error) {
	queue, err := client.DeclareQueue(DeclareQueueConfig{
		Name:       "",
		Durable:    false,
		AutoDelete: true,
		Exclusive:  true,
		NoWait:     false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}

	msgs, err := client.Consume(ConsumeConfig{
		Queue:     queue.Name,
		Consumer:  "",
		AutoAck:   true,
		Exclusive: true,
		NoLocal:   false,
		NoWait:    false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to consume reply queue: %w", err)
	}

	r := &RPCClient{
		client:     client,
		replyQueue: queue.Name,
		pending:    make(map[string]chan []byte),
	}

	go r.dispatch(msgs)

	return r, nil
}

// dispatch routes replies to their waiting callers by correlation id.
func (r *RPCClient) dispatch(msgs <-chan amqp.Delivery) {
	for msg := range msgs {
		r.mu.Lock()
		ch, ok := r.pending[msg.CorrelationId]
		if ok {
			delete(r.pending, msg.CorrelationId)
		}
		r.mu.Unlock()

		if !ok {
			slog.Warn("Dropping reply with unknown correlation id", "correlation_id", msg.CorrelationId)
			continue
		}

		ch <- msg.Body
	}
}

// Call publishes body to routingKey and blocks until the reply arrives or ctx
// is done. Remote errors arrive as {"error": "..."} envelopes and are
// returned as errors.
func (r *RPCClient) Call(ctx context.Context, routingKey string, body []byte) ([]byte, error) {
	correlationID := uuid.NewString()
	replyCh := make(chan []byte, 1)

	r.mu.Lock()
	r.pending[correlationID] = replyCh
	r.mu.Unlock()

	err := r.client.Channel().Publish(
		"",
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			ReplyTo:       r.replyQueue,
			Body:          body,
		},
	)
	if err != nil {
		r.mu.Lock()
		delete(r.pending, correlationID)
		r.mu.Unlock()

		return nil, fmt.Errorf("failed to publish request to %s: %w", routingKey, err)
	}

	select {
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.pending, correlationID)
		r.mu.Unlock()

		return nil, ctx.Err()
	case reply := <-replyCh:
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(reply, &envelope); err == nil && envelope.Error != "" {
			return nil, errors.New(envelope.Error)
		}

		return reply, nil
	}
}
