package model

import "time"

// Customer 会员档案 (本服务只消费门禁相关字段)
type Customer struct {
	ID        uint64    `gorm:"primaryKey;column:customer_id"`
	FullName  string    `gorm:"column:full_name"`
	Phone     string    `gorm:"column:phone;uniqueIndex"`
	Barcode   string    `gorm:"column:barcode;uniqueIndex"` // 静态条码, 形如 GYM-123
	BranchID  uint64    `gorm:"column:branch_id;index"`
	IsActive  bool      `gorm:"column:is_active;default:true"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Customer) TableName() string { return "customer" }
