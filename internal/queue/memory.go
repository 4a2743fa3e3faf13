package queue

import (
	"context"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"
)

// MemoryBroker 进程内的发布/订阅替身：Publish 的消息可被 ReadMessage 读到，
// 因此同一个实例既能当 Producer 也能喂给 Listener。
type MemoryBroker struct {
	topic string

	mu        sync.Mutex
	published []kafka.Message
	failErr   error
	offset    int64

	// sendLock 串行化投递，保证 offset 连续且与读取顺序一致
	sendLock  chan struct{}
	ch        chan kafka.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMemoryBroker(topic string, buffer int) *MemoryBroker {
	return &MemoryBroker{
		topic:    topic,
		sendLock: make(chan struct{}, 1),
		ch:       make(chan kafka.Message, buffer),
		closed:   make(chan struct{}),
	}
}

func (b *MemoryBroker) Topic() string { return b.topic }

// SetFailure 之后 Publish 都返回 err；传 nil 恢复。
func (b *MemoryBroker) SetFailure(err error) {
	b.mu.Lock()
	b.failErr = err
	b.mu.Unlock()
}

func (b *MemoryBroker) Publish(ctx context.Context, msg OrderMessage) error {
	m, err := encodeMessage(b.topic, msg)
	if err != nil {
		return err
	}

	b.mu.Lock()
	failErr := b.failErr
	b.mu.Unlock()
	if failErr != nil {
		return failErr
	}

	select {
	case b.sendLock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closed:
		return io.ErrClosedPipe
	}
	defer func() { <-b.sendLock }()

	b.mu.Lock()
	m.Offset = b.offset
	b.mu.Unlock()

	// 只有被接收（进入缓冲）的消息才算已确认，也只有这时才占用 offset
	select {
	case b.ch <- m:
		b.mu.Lock()
		b.offset++
		b.published = append(b.published, m)
		b.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closed:
		return io.ErrClosedPipe
	}
}

// ReadMessage 与 kafka.Reader 签名一致；关闭后返回 io.EOF。
func (b *MemoryBroker) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-b.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-b.closed:
		return kafka.Message{}, io.EOF
	}
}

// Messages 返回已确认消息的副本。
func (b *MemoryBroker) Messages() []kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]kafka.Message, len(b.published))
	copy(out, b.published)
	return out
}

func (b *MemoryBroker) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}
