package queue

import (
	"encoding/json"
	"fmt"

	"order_service/internal/model"

	"github.com/segmentio/kafka-go"
)

// OrderMessage 是写入 Kafka 的订单事件，字段与请求体一致。
type OrderMessage struct {
	OrderID string  `json:"order_id"`
	UserID  string  `json:"user_id"`
	Amount  float64 `json:"amount"`
}

// NewOrderMessage 从订单记录构造事件。
func NewOrderMessage(o model.Order) OrderMessage {
	return OrderMessage{OrderID: o.OrderID, UserID: o.UserID, Amount: o.Amount}
}

// encodeMessage 统一 key/value 编码：key 为 order_id，value 为 JSON。
func encodeMessage(topic string, msg OrderMessage) (kafka.Message, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal order message %s: %w", msg.OrderID, err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(msg.OrderID),
		Value: b,
	}, nil
}
