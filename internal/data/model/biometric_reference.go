package model

import "time"

// BiometricReference 生物识别引用模型
type BiometricReference struct {
	ID                 uint64     `gorm:"primaryKey;column:biometric_reference_id;autoIncrement"`
	CustomerID         uint64     `gorm:"column:customer_id;index"`
	ReferenceHash      string     `gorm:"column:reference_hash;uniqueIndex"`
	IsActive           bool       `gorm:"column:is_active;index;default:true"`
	LastUsed           *time.Time `gorm:"column:last_used"`
	DeactivatedAt      *time.Time `gorm:"column:deactivated_at"`
	DeactivationReason string     `gorm:"column:deactivation_reason"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
}

func (BiometricReference) TableName() string { return "biometric_reference" }
