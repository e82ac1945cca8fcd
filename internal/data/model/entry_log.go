package model

import "time"

// EntryLog 入场审计模型, 只追加
type EntryLog struct {
	ID             uint64  `gorm:"primaryKey;column:entry_log_id;autoIncrement"`
	ExternalID     string  `gorm:"column:external_id;uniqueIndex"` // 对外暴露的 UUID
	CustomerID     *uint64 `gorm:"column:customer_id;index"`       // 凭证解析失败时为空
	SubscriptionID *uint64 `gorm:"column:subscription_id;index"`
	BranchID       uint64  `gorm:"column:branch_id;index"`
	EntryType      string  `gorm:"column:entry_type"` // token, barcode, biometric, manual
	Approved       bool    `gorm:"column:approved;index"`
	ReasonCode     string  `gorm:"column:reason_code"`
	AmountDeducted int     `gorm:"column:amount_deducted;default:0"`
	ProcessedBy    *uint64 `gorm:"column:processed_by"`
	OccurredAt     time.Time `gorm:"column:occurred_at;index"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (EntryLog) TableName() string { return "entry_log" }
