package store

import (
	"context"
	"errors"
	"testing"

	"order_service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &model.Order{OrderID: "order123", UserID: "user123", Amount: 99.99}))
	require.NoError(t, s.Upsert(ctx, &model.Order{OrderID: "order123", UserID: "user123", Amount: 5}))

	got, err := s.Get(ctx, "order123")
	require.NoError(t, err)
	assert.InDelta(t, 5, got.Amount, 1e-9)
	assert.Equal(t, 1, s.Len())

	exists, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Upsert(ctx, &model.Order{}), ErrEmptyOrderID)
}

func TestMemoryStore_SetFailure(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	unavailable := errors.New("connection refused")

	s.SetFailure(unavailable)
	assert.ErrorIs(t, s.Upsert(ctx, &model.Order{OrderID: "order123"}), unavailable)
	_, err := s.Exists(ctx, "order123")
	assert.ErrorIs(t, err, unavailable)

	s.SetFailure(nil)
	require.NoError(t, s.Upsert(ctx, &model.Order{OrderID: "order123"}))
	assert.Equal(t, 1, s.Len())
}
