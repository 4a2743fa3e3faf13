package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// TopicSpec 描述启动时需要保证存在的 topic。
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// EnsureTopic 连接集群 controller 创建 topic；已存在视为成功，可重复调用。
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	var unbind []func() bool
	defer func() {
		for _, stop := range unbind {
			stop()
		}
	}()
	// ctx 结束时直接关闭底层连接，握手与后续同步调用都会被打断
	d := kafka.Dialer{
		DialFunc: func(dialCtx context.Context, network, address string) (net.Conn, error) {
			var nd net.Dialer
			c, err := nd.DialContext(dialCtx, network, address)
			if err != nil {
				return nil, err
			}
			unbind = append(unbind, context.AfterFunc(ctx, func() { _ = c.Close() }))
			return c, nil
		},
	}

	conn, err := d.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", brokers[0], withCtxErr(ctx, err))
	}
	defer conn.Close()
	setDeadline(ctx, conn)

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("lookup controller: %w", withCtxErr(ctx, err))
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, withCtxErr(ctx, err))
	}
	defer ctrlConn.Close()
	setDeadline(ctx, ctrlConn)

	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.Partitions,
		ReplicationFactor: spec.ReplicationFactor,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", spec.Name, withCtxErr(ctx, err))
	}
	return nil
}

// setDeadline 把 ctx 的 deadline 应用到 conn 上的同步调用。
func setDeadline(ctx context.Context, conn *kafka.Conn) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
}

// withCtxErr 在 ctx 已结束时优先返回 ctx 的错误，便于调用方用 errors.Is 判断超时/取消。
func withCtxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
