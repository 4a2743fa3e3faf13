package store

import (
	"context"
	"errors"
	"fmt"

	"order_service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于关系库（sqlite / postgres）的订单存储。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Upsert 使用 INSERT ... ON CONFLICT(order_id) DO UPDATE，重复 id 以最后一次写入为准。
func (s *GormStore) Upsert(ctx context.Context, order *model.Order) error {
	if order.OrderID == "" {
		return ErrEmptyOrderID
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "amount", "updated_at"}),
		}).
		Create(order).Error
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", order.OrderID, err)
	}
	return nil
}

func (s *GormStore) Exists(ctx context.Context, orderID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check order %s: %w", orderID, err)
	}
	return n > 0, nil
}

func (s *GormStore) Get(ctx context.Context, orderID string) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &o, nil
}
