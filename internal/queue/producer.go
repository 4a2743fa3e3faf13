package queue

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer 封装 Kafka 写入器。
type Producer struct {
	w     *kafka.Writer
	topic string
}

// NewProducer 创建生产者并配置可靠性参数：
// - Hash + Key: 相同 order_id 落到同一分区。
// - RequireAll: 等待 ISR 副本确认后才算发布成功。
// - MaxAttempts=1: 失败直接返回给调用方，不在客户端内部重试。
func NewProducer(brokers []string, topic string, timeout time.Duration) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  1,
			WriteTimeout: timeout,
			ReadTimeout:  timeout,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}
}

// Close 释放 writer 资源。
func (p *Producer) Close() error { return p.w.Close() }

func (p *Producer) Topic() string { return p.topic }

// Publish 同步写入一条订单事件，返回即表示 broker 已确认。
func (p *Producer) Publish(ctx context.Context, msg OrderMessage) error {
	m, err := encodeMessage("", msg)
	if err != nil {
		return err
	}
	// Writer 已配置 Topic，消息上不能再带 Topic。
	return p.w.WriteMessages(ctx, m)
}
