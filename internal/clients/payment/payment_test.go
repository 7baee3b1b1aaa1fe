package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mercatolabs/order-orchestrator/internal/service/models/currency"
	"github.com/mercatolabs/order-orchestrator/internal/service/orderserr"
)

type MockRPC struct {
	mock.Mock
}

func (m *MockRPC) Call(ctx context.Context, routingKey string, body []byte) ([]byte, error) {
	args := m.Called(ctx, routingKey, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func TestClient_CreateSession(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	req := SessionRequest{
		OrderID:  orderID,
		Currency: currency.CurrencyUSD,
		Items:    []SessionItem{{Name: "Widget", PriceCents: 500, Quantity: 2}},
	}

	t.Run("Success", func(t *testing.T) {
		rpc := new(MockRPC)
		client := NewClient(rpc)

		reply, _ := json.Marshal(Session{ID: "sess_1", URL: "https://pay.example/sess_1"})
		rpc.On("Call", ctx, "payment.create_session", mock.MatchedBy(func(body []byte) bool {
			var sent SessionRequest
			if err := json.Unmarshal(body, &sent); err != nil {
				return false
			}
			return sent.OrderID == orderID &&
				sent.Currency == currency.CurrencyUSD &&
				len(sent.Items) == 1 &&
				sent.Items[0].Name == "Widget"
		})).Return(reply, nil)

		session, err := client.CreateSession(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "sess_1", session.ID)
		assert.Equal(t, "https://pay.example/sess_1", session.URL)
		rpc.AssertExpectations(t)
	})

	t.Run("RemoteFailure_Wrapped", func(t *testing.T) {
		rpc := new(MockRPC)
		client := NewClient(rpc)

		rpc.On("Call", ctx, "payment.create_session", mock.Anything).
			Return(nil, errors.New("session rejected"))

		_, err := client.CreateSession(ctx, req)
		var remoteErr *orderserr.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, "payment.create_session", remoteErr.Target)
	})
}
