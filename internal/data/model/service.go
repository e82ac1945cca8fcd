package model

import "time"

// Service 服务项目模板 (本服务只读)
type Service struct {
	ID          uint64 `gorm:"primaryKey;column:service_id"`
	Name        string `gorm:"column:name"`
	Category    string `gorm:"column:category;index"` // 历史数据写法不统一, 读取时归一化
	Description string `gorm:"column:description"`
	Price       float64 `gorm:"column:price"`
	DurationDays int    `gorm:"column:duration_days"`
	ClassLimit   *int   `gorm:"column:class_limit"`
	FreezeCountLimit int     `gorm:"column:freeze_count_limit;default:2"`
	FreezeMaxDays    int     `gorm:"column:freeze_max_days;default:15"`
	FreezeIsPaid     bool    `gorm:"column:freeze_is_paid;default:false"`
	FreezeCost       float64 `gorm:"column:freeze_cost;default:0"`
	IsActive         bool    `gorm:"column:is_active;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (Service) TableName() string { return "service" }
