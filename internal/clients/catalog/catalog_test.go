package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

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

func TestClient_ValidateProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_DeduplicatesIds", func(t *testing.T) {
		rpc := new(MockRPC)
		client := NewClient(rpc)

		reply, _ := json.Marshal([]Product{
			{ID: 1, Name: "Widget", PriceCents: 500},
			{ID: 2, Name: "Gadget", PriceCents: 250},
		})

		rpc.On("Call", ctx, "catalog.validate_products", mock.MatchedBy(func(body []byte) bool {
			var req struct {
				IDs []int64 `json:"ids"`
			}
			if err := json.Unmarshal(body, &req); err != nil {
				return false
			}
			return assert.ObjectsAreEqual([]int64{1, 2}, req.IDs)
		})).Return(reply, nil)

		products, err := client.ValidateProducts(ctx, []int64{1, 2, 1, 2, 1})
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "Widget", products[0].Name)
		assert.Equal(t, int64(500), products[0].PriceCents)
		rpc.AssertExpectations(t)
	})

	t.Run("RemoteFailure_Wrapped", func(t *testing.T) {
		rpc := new(MockRPC)
		client := NewClient(rpc)

		rpc.On("Call", ctx, "catalog.validate_products", mock.Anything).
			Return(nil, errors.New("connection refused"))

		_, err := client.ValidateProducts(ctx, []int64{1})
		require.Error(t, err)

		var remoteErr *orderserr.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, "catalog.validate_products", remoteErr.Target)
	})

	t.Run("MalformedReply_Wrapped", func(t *testing.T) {
		rpc := new(MockRPC)
		client := NewClient(rpc)

		rpc.On("Call", ctx, "catalog.validate_products", mock.Anything).
			Return([]byte("not json"), nil)

		_, err := client.ValidateProducts(ctx, []int64{1})
		var remoteErr *orderserr.RemoteError
		assert.ErrorAs(t, err, &remoteErr)
	})

	t.Run("ShortReply_ReturnedAsIs", func(t *testing.T) {
		// the catalog answering with fewer products than requested is the
		// caller's problem to detect
		rpc := new(MockRPC)
		client := NewClient(rpc)

		reply, _ := json.Marshal([]Product{{ID: 1, Name: "Widget", PriceCents: 500}})
		rpc.On("Call", ctx, "catalog.validate_products", mock.Anything).Return(reply, nil)

		products, err := client.ValidateProducts(ctx, []int64{1, 99})
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})
}
