package biz

import (
	"context"
	"time"
)

// EntryLog 入场审计记录, 只追加不修改
// 每次入场校验无论通过与否都必须落一条; 审计写入失败则整次校验失败
type EntryLog struct {
	ID uint64
	// ExternalID 对外暴露的日志ID (UUID), 避免泄露自增主键
	ExternalID string
	// CustomerID 凭证解析失败时为空
	CustomerID *uint64
	// SubscriptionID 在找到目标订阅之前被拒绝时为空
	SubscriptionID *uint64
	BranchID       uint64
	EntryType      string // token, barcode, biometric, manual
	Approved       bool
	// ReasonCode 拒绝原因码, 通过时为空
	ReasonCode     string
	AmountDeducted int
	// ProcessedBy 人工放行/代办时的员工ID
	ProcessedBy *uint64
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// EntryLogRepo 入场审计仓库接口
type EntryLogRepo interface {
	AddEntryLog(ctx context.Context, e *EntryLog) error
	// ListByCustomer 按会员分页查询入场历史, 按时间倒序
	ListByCustomer(ctx context.Context, customerID uint64, page, pageSize int) ([]*EntryLog, int, error)
}
