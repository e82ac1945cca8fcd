package biz

import (
	"context"
	"time"
)

// BiometricReference 生物识别引用 (指纹/人脸哈希到会员的映射)
// is_active 只是展示用缓存, 不作为放行依据; 校验时总是重新推导会员的订阅资格
type BiometricReference struct {
	ID         uint64
	CustomerID uint64
	// ReferenceHash 生物特征哈希, 全局唯一, 仅用于身份定位
	ReferenceHash      string
	IsActive           bool
	LastUsed           *time.Time
	DeactivatedAt      *time.Time
	DeactivationReason string
	CreatedAt          time.Time
}

// BiometricRepo 生物识别引用仓库接口
type BiometricRepo interface {
	GetByHash(ctx context.Context, referenceHash string) (*BiometricReference, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]*BiometricReference, error)
	// SetActiveForCustomer 批量切换会员名下引用的激活状态
	// 激活时清空停用原因, 停用时记录原因和时间
	SetActiveForCustomer(ctx context.Context, customerID uint64, active bool, reason string, now time.Time) error
	TouchLastUsed(ctx context.Context, id uint64, now time.Time) error
}
