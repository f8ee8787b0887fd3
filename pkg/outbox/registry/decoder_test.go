package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	"github.com/angelmondragon/tokoflow-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventPaymentUpdated, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	output, err := reg.Decode(enums.EventPaymentUpdated, 1, json.RawMessage(`{"payment_status":"success"}`))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"payment_status": "success"}, output)

	_, err = reg.Decode(enums.EventPaymentUpdated, 2, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestDecoderRegistryFromEventRegistry(t *testing.T) {
	events := newTestEventRegistry(t)
	reg := NewDecoderRegistryFrom(events)

	orderID := uuid.New()
	raw := mustMarshal(t, payloads.OrderCancelledEvent{
		OrderRef:       payloads.OrderRef{OrderID: orderID, Status: enums.OrderStatusCancelled},
		PreviousStatus: enums.OrderStatusPending,
	})
	out, err := reg.Decode(enums.EventOrderCancelled, 1, raw)
	require.NoError(t, err)
	decoded, ok := out.(*payloads.OrderCancelledEvent)
	require.True(t, ok, "unexpected %T", out)
	require.Equal(t, orderID, decoded.OrderID)
	require.Equal(t, enums.OrderStatusPending, decoded.PreviousStatus)
}
