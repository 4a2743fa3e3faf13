package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"order_service/internal/metrics"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader 是 Listener 的消息来源；*kafka.Reader 与 *MemoryBroker 都满足。
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Delivery 是 Listener 观察到的一条消息。
type Delivery struct {
	Key        string    `json:"key"`
	Payload    []byte    `json:"-"`
	Topic      string    `json:"topic"`
	Partition  int       `json:"partition"`
	Offset     int64     `json:"offset"`
	ReceivedAt time.Time `json:"received_at"`
}

// Decode 将 payload 还原为订单事件。
func (d Delivery) Decode() (OrderMessage, error) {
	var msg OrderMessage
	err := json.Unmarshal(d.Payload, &msg)
	return msg, err
}

// Listener 订阅订单 topic，只用于验证投递：记录最近一条消息，
// 并在收到第一条消息时关闭 Received() 通道（只触发一次）。
type Listener struct {
	r       MessageReader
	log     *zap.Logger
	metrics *metrics.Collector

	latest    atomic.Pointer[Delivery]
	first     chan struct{}
	firstOnce sync.Once
}

// NewListener 以消费者组方式订阅 topic。
func NewListener(brokers []string, topic, groupID string, log *zap.Logger, m *metrics.Collector) *Listener {
	return NewListenerFromReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1e6,
		MaxWait:  500 * time.Millisecond,
	}), log, m)
}

func NewListenerFromReader(r MessageReader, log *zap.Logger, m *metrics.Collector) *Listener {
	return &Listener{
		r:       r,
		log:     log,
		metrics: m,
		first:   make(chan struct{}),
	}
}

func (l *Listener) Close() error { return l.r.Close() }

// Run 阻塞读取直到 ctx 取消或 reader 关闭。
func (l *Listener) Run(ctx context.Context) {
	for {
		m, err := l.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				l.log.Error("listener read failed", zap.Error(err))
			}
			return // ctx cancel / 连接断开等
		}
		l.record(m)
	}
}

func (l *Listener) record(m kafka.Message) {
	d := &Delivery{
		Key:        string(m.Key),
		Payload:    m.Value,
		Topic:      m.Topic,
		Partition:  m.Partition,
		Offset:     m.Offset,
		ReceivedAt: time.Now(),
	}
	l.latest.Store(d)
	l.firstOnce.Do(func() { close(l.first) })
	if l.metrics != nil {
		l.metrics.ListenerDeliveries.Inc()
	}

	msg, err := d.Decode()
	if err != nil {
		l.log.Warn("listener received undecodable payload",
			zap.String("key", d.Key),
			zap.Int64("offset", d.Offset),
			zap.Error(err),
		)
		return
	}
	l.log.Info("listener received order",
		zap.String("order_id", msg.OrderID),
		zap.String("user_id", msg.UserID),
		zap.Float64("amount", msg.Amount),
		zap.Int("partition", d.Partition),
		zap.Int64("offset", d.Offset),
	)
}

// Latest 返回最近一条消息；尚未收到任何消息时 ok=false。
func (l *Listener) Latest() (Delivery, bool) {
	d := l.latest.Load()
	if d == nil {
		return Delivery{}, false
	}
	return *d, true
}

// Received 在收到第一条消息后关闭。
func (l *Listener) Received() <-chan struct{} { return l.first }

// Await 等待至少一条消息到达，返回此刻最近的一条。
func (l *Listener) Await(ctx context.Context) (Delivery, error) {
	select {
	case <-l.first:
		d, _ := l.Latest()
		return d, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}
