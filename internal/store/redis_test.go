package store

import (
	"context"
	"os"
	"strconv"
	"testing"

	"order_service/internal/model"
	rediskey "order_service/pkg/redis"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *rd.Client) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := rd.NewClient(&rd.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), rdb
}

func TestRedisStore_UpsertOverwrites(t *testing.T) {
	s, rdb := setupRedisStore(t)
	ctx := context.Background()
	orderID := "order-" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), rediskey.OrderKey(orderID)) })

	exists, err := s.Exists(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Upsert(ctx, &model.Order{OrderID: orderID, UserID: "user123", Amount: 99.99}))
	require.NoError(t, s.Upsert(ctx, &model.Order{OrderID: orderID, UserID: "user123", Amount: 12.5}))

	exists, err = s.Exists(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.Get(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, got.OrderID)
	assert.Equal(t, "user123", got.UserID)
	assert.InDelta(t, 12.5, got.Amount, 1e-9)
}

func TestRedisStore_GetMissing(t *testing.T) {
	s, _ := setupRedisStore(t)

	_, err := s.Get(context.Background(), "order-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_RejectsEmptyID(t *testing.T) {
	s := NewRedisStore(rd.NewClient(&rd.Options{Addr: "127.0.0.1:0"}))

	err := s.Upsert(context.Background(), &model.Order{UserID: "user123"})
	assert.ErrorIs(t, err, ErrEmptyOrderID)
}

func TestRedisStore_GetCorruptAmount(t *testing.T) {
	s, rdb := setupRedisStore(t)
	ctx := context.Background()
	orderID := "order-" + uuid.NewString()
	key := rediskey.OrderKey(orderID)
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	require.NoError(t, rdb.HSet(ctx, key, "order_id", orderID, "user_id", "user123", "amount", "abc").Err())

	_, err := s.Get(ctx, orderID)
	require.Error(t, err)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}
