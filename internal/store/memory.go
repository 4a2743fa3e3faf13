package store

import (
	"context"
	"sync"

	"order_service/internal/model"
)

// MemoryStore 进程内实现，供测试与本地演示使用。
type MemoryStore struct {
	mu      sync.RWMutex
	orders  map[string]model.Order
	failErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]model.Order)}
}

// SetFailure 之后所有操作都返回 err；传 nil 恢复。
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *MemoryStore) Upsert(ctx context.Context, order *model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order.OrderID == "" {
		return ErrEmptyOrderID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.orders[order.OrderID] = *order
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, orderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return false, s.failErr
	}
	_, ok := s.orders[orderID]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, orderID string) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

// Len 返回当前记录数。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
