package model

import "time"

// Subscription 会员订阅模型
type Subscription struct {
	ID         uint64    `gorm:"primaryKey;column:subscription_id"`
	CustomerID uint64    `gorm:"column:customer_id;index:idx_customer;index:idx_customer_status"`
	ServiceID  uint64    `gorm:"column:service_id;index"`
	BranchID   uint64    `gorm:"column:branch_id;index"`
	StartDate  time.Time `gorm:"column:start_date;index"`
	EndDate    time.Time `gorm:"column:end_date;index"`
	Status     string    `gorm:"column:status;index:idx_customer_status"` // active, frozen, stopped, expired
	// EntitlementType 权益类型; 历史行可能为空, 读取时按服务类目修复
	EntitlementType   string `gorm:"column:entitlement_type"` // coins, sessions, training, time_based
	RemainingCoins    *int   `gorm:"column:remaining_coins"`
	TotalCoins        *int   `gorm:"column:total_coins"`
	RemainingSessions *int   `gorm:"column:remaining_sessions"`
	TotalSessions     *int   `gorm:"column:total_sessions"`
	FreezeCount       int    `gorm:"column:freeze_count;default:0"`
	TotalFrozenDays   int    `gorm:"column:total_frozen_days;default:0"`
	StopReason        string `gorm:"column:stop_reason"`
	StoppedAt         *time.Time `gorm:"column:stopped_at"`
	CreatedBy         uint64     `gorm:"column:created_by;index"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (Subscription) TableName() string { return "subscription" }
