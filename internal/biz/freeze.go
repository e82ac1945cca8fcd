package biz

import (
	"context"
	"time"
)

// FreezeHistory 冻结历史, 每条记录对应一次冻结经历
// 同一订阅同一时刻只有一条 is_active 的记录, freeze() 创建, unfreeze() 关闭
type FreezeHistory struct {
	ID             uint64
	SubscriptionID uint64
	FreezeStart    time.Time
	FreezeEnd      time.Time
	FreezeDays     int
	Reason         string
	// Cost 付费冻结的费用, 只做账面记录, 不触发支付流程
	Cost       float64
	IsActive   bool
	CreatedAt  time.Time
	UnfrozenAt *time.Time
}

// FreezeHistoryRepo 冻结历史仓库接口
type FreezeHistoryRepo interface {
	AddFreeze(ctx context.Context, fh *FreezeHistory) error
	// GetActiveFreeze 获取订阅当前未关闭的冻结记录, 没有则返回 nil
	GetActiveFreeze(ctx context.Context, subscriptionID uint64) (*FreezeHistory, error)
	// CloseActiveFreeze 关闭当前冻结记录 (is_active=false, unfrozen_at=now)
	CloseActiveFreeze(ctx context.Context, subscriptionID uint64, now time.Time) error
	// GetLastFreeze 获取订阅最近一次冻结记录 (入场拒绝提示用)
	GetLastFreeze(ctx context.Context, subscriptionID uint64) (*FreezeHistory, error)
	ListFreezes(ctx context.Context, subscriptionID uint64) ([]*FreezeHistory, error)
}
