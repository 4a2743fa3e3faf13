package queue

import (
	"encoding/json"
	"testing"

	"order_service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	msg := NewOrderMessage(model.Order{OrderID: "order123", UserID: "user123", Amount: 99.99})

	m, err := encodeMessage("orders", msg)
	require.NoError(t, err)

	assert.Equal(t, "orders", m.Topic)
	assert.Equal(t, "order123", string(m.Key))
	assert.JSONEq(t, `{"order_id":"order123","user_id":"user123","amount":99.99}`, string(m.Value))

	var decoded OrderMessage
	require.NoError(t, json.Unmarshal(m.Value, &decoded))
	assert.Equal(t, msg, decoded)
}
