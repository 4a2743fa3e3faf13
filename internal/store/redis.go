package store

import (
	"context"
	"fmt"
	"strconv"

	"order_service/internal/model"
	rediskey "order_service/pkg/redis"

	rd "github.com/redis/go-redis/v9"
)

// RedisStore 每个订单一个 hash，HSET 天然是覆盖写。
type RedisStore struct {
	rdb *rd.Client
}

func NewRedisStore(rdb *rd.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Upsert(ctx context.Context, order *model.Order) error {
	if order.OrderID == "" {
		return ErrEmptyOrderID
	}
	// 三个字段总是整体写入，旧值不会残留。
	err := s.rdb.HSet(ctx, rediskey.OrderKey(order.OrderID),
		"order_id", order.OrderID,
		"user_id", order.UserID,
		"amount", strconv.FormatFloat(order.Amount, 'f', -1, 64),
	).Err()
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", order.OrderID, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, orderID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, rediskey.OrderKey(orderID)).Result()
	if err != nil {
		return false, fmt.Errorf("check order %s: %w", orderID, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, orderID string) (*model.Order, error) {
	m, err := s.rdb.HGetAll(ctx, rediskey.OrderKey(orderID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	amount, err := strconv.ParseFloat(m["amount"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q for order %s: %w", m["amount"], orderID, err)
	}
	return &model.Order{
		OrderID: m["order_id"],
		UserID:  m["user_id"],
		Amount:  amount,
	}, nil
}
