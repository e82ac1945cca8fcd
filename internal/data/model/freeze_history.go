package model

import "time"

// FreezeHistory 冻结历史模型, 一行对应一次冻结经历
type FreezeHistory struct {
	ID             uint64    `gorm:"primaryKey;column:freeze_history_id;autoIncrement"`
	SubscriptionID uint64    `gorm:"column:subscription_id;index:idx_sub;index:idx_sub_active"`
	FreezeStart    time.Time `gorm:"column:freeze_start"`
	FreezeEnd      time.Time `gorm:"column:freeze_end"`
	FreezeDays     int       `gorm:"column:freeze_days"`
	Reason         string    `gorm:"column:reason"`
	Cost           float64   `gorm:"column:cost;default:0"` // 付费冻结的账面费用
	IsActive       bool      `gorm:"column:is_active;index:idx_sub_active;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UnfrozenAt     *time.Time `gorm:"column:unfrozen_at"`
}

func (FreezeHistory) TableName() string { return "freeze_history" }
