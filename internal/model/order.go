package model

import "time"

// Order 下单记录：order_id 由调用方提供，同时作为主键与消息 key。
// 重复 order_id 走覆盖写（upsert），以最后一次写入为准。
type Order struct {
	OrderID   string    `gorm:"primaryKey" json:"order_id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Amount    float64   `gorm:"not null;default:0" json:"amount"` // 无币种、无范围校验
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// 显式实现结构，确定表名
func (Order) TableName() string { return "orders" }
