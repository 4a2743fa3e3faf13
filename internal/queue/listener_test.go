package queue

import (
	"context"
	"testing"
	"time"

	"order_service/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestListener(b *MemoryBroker) (*Listener, *metrics.Collector) {
	m := metrics.NewCollector("queue_test", prometheus.NewRegistry())
	return NewListenerFromReader(b, zap.NewNop(), m), m
}

func TestListener_LatestBeforeAnyMessage(t *testing.T) {
	l, _ := newTestListener(NewMemoryBroker("orders", 1))

	_, ok := l.Latest()
	assert.False(t, ok)

	select {
	case <-l.Received():
		t.Fatal("received signal fired without a message")
	default:
	}
}

func TestListener_RecordsLatestAndSignalsOnce(t *testing.T) {
	b := NewMemoryBroker("orders", 8)
	l, m := newTestListener(b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	require.NoError(t, b.Publish(ctx, OrderMessage{OrderID: "order123", UserID: "user123", Amount: 99.99}))

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer waitCancel()
	d, err := l.Await(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, "order123", d.Key)
	assert.Equal(t, "orders", d.Topic)

	msg, err := d.Decode()
	require.NoError(t, err)
	assert.Equal(t, OrderMessage{OrderID: "order123", UserID: "user123", Amount: 99.99}, msg)

	require.NoError(t, b.Publish(ctx, OrderMessage{OrderID: "order456", UserID: "user456", Amount: 1}))
	require.Eventually(t, func() bool {
		latest, ok := l.Latest()
		return ok && latest.Key == "order456"
	}, 5*time.Second, 10*time.Millisecond)

	// 第二条消息不会再次关闭通道（否则 panic）
	<-l.Received()
	assert.InDelta(t, 2, testutil.ToFloat64(m.ListenerDeliveries), 0)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}

func TestListener_AwaitTimesOut(t *testing.T) {
	l, _ := newTestListener(NewMemoryBroker("orders", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListener_UndecodablePayloadStillRecorded(t *testing.T) {
	l, _ := newTestListener(NewMemoryBroker("orders", 1))

	l.record(kafka.Message{Topic: "orders", Key: []byte("k"), Value: []byte("not-json")})

	d, ok := l.Latest()
	require.True(t, ok)
	assert.Equal(t, "not-json", string(d.Payload))
	_, err := d.Decode()
	assert.Error(t, err)
}

func TestListener_StopsWhenReaderClosed(t *testing.T) {
	b := NewMemoryBroker("orders", 1)
	l, _ := newTestListener(b)

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	require.NoError(t, l.Close())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after close")
	}
}
