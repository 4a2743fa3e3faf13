// Package store 持久化订单。所有实现都是按 order_id 覆盖写（upsert），不提供删除与列表。
package store

import (
	"context"
	"errors"

	"order_service/internal/model"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrEmptyOrderID = errors.New("order_id must not be empty")
)

// Store 是订单存储边界。实现需可被多个请求并发使用。
type Store interface {
	// Upsert 不存在则插入，存在则整体覆盖。
	Upsert(ctx context.Context, order *model.Order) error
	Exists(ctx context.Context, orderID string) (bool, error)
	// Get 不存在时返回 ErrNotFound。
	Get(ctx context.Context, orderID string) (*model.Order, error)
}
