package biz

import (
	"context"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSubscriptionUsecase,
	NewEntryUsecase,
	NewBiometricUsecase,
	NewAccessTokenIssuer,
)

// Subscription 会员订阅记录
type Subscription struct {
	ID         uint64
	CustomerID uint64
	ServiceID  uint64
	BranchID   uint64
	// 日期字段只保留日粒度, 统一为 UTC 零点
	StartDate time.Time
	EndDate   time.Time
	Status    string // active, frozen, stopped, expired
	// EntitlementType 权益类型, 决定下面哪一对计数器生效
	EntitlementType string // coins, sessions, training, time_based
	// 金币计数器 (仅 coins 类型非空)
	RemainingCoins *int
	TotalCoins     *int
	// 课时计数器 (sessions/training 类型非空)
	RemainingSessions *int
	TotalSessions     *int
	// 冻结追踪
	FreezeCount     int
	TotalFrozenDays int
	// 终止信息
	StopReason string
	StoppedAt  *time.Time
	CreatedBy  uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DeriveEntitlementType 根据服务类目推导权益类型
// 纯函数: 创建订阅时调用 (除非调用方显式覆盖), 也用于修复缺失类型的历史记录
func DeriveEntitlementType(svc *Service) string {
	switch {
	case svc.Category == CategoryGym:
		return constants.EntitlementCoins
	case svc.Category == CategoryKarate:
		return constants.EntitlementTraining
	case svc.Category == CategorySwimmingEducation || svc.HasClassLimit():
		return constants.EntitlementSessions
	default:
		// swimming_recreation, bundle → 时间型
		return constants.EntitlementTimeBased
	}
}

// IsActive 订阅是否处于激活状态 (不含日期判断)
func (s *Subscription) IsActive() bool {
	return s.Status == constants.StatusActive
}

// IsDateExpired 是否已过有效期 (惰性日期判断, 与状态字段独立)
func (s *Subscription) IsDateExpired(today time.Time) bool {
	return s.EndDate.Before(DateOnly(today))
}

// Remaining 返回当前生效计数器的余量, 时间型订阅返回 -1 表示不限量
func (s *Subscription) Remaining() int {
	switch s.EntitlementType {
	case constants.EntitlementCoins:
		if s.RemainingCoins != nil {
			return *s.RemainingCoins
		}
		return 0
	case constants.EntitlementSessions, constants.EntitlementTraining:
		if s.RemainingSessions != nil {
			return *s.RemainingSessions
		}
		return 0
	default:
		return -1
	}
}

// SubscriptionRepo 订阅仓库接口
type SubscriptionRepo interface {
	GetSubscription(ctx context.Context, id uint64) (*Subscription, error)
	CreateSubscription(ctx context.Context, sub *Subscription) error
	SaveSubscription(ctx context.Context, sub *Subscription) error
	// GetLatestActiveByCustomer 返回会员最近创建的激活订阅
	// 并发创建导致多条激活订阅时取 created_at 最新的一条, created_at 相同按 id 倒序兜底
	GetLatestActiveByCustomer(ctx context.Context, customerID uint64) (*Subscription, error)
	// GetLatestExpiredByCustomer 返回会员最近一条已过期订阅 (拒绝入场时的提示信息用)
	GetLatestExpiredByCustomer(ctx context.Context, customerID uint64) (*Subscription, error)
	// HasOtherActive 会员在 exceptID 之外是否还有激活订阅
	HasOtherActive(ctx context.Context, customerID, exceptID uint64) (bool, error)
	// DeductCounter 原子扣减当前生效计数器 (CAS: 仅当状态为 active 且余量 > 0 时生效)
	// 返回扣减后的余量; ok=false 表示条件不满足 (余量耗尽或状态已变更), 未做任何修改
	DeductCounter(ctx context.Context, id uint64, entitlementType string, amount int) (remaining int, ok bool, err error)
	// CreditCounter 回补计数器 (冻结补偿等人工流程), 以 total 为上限
	CreditCounter(ctx context.Context, id uint64, entitlementType string, amount int) (remaining int, err error)
	// SweepExpired 将所有 end_date < today 的 active 订阅置为 expired
	// 单调幂等, 返回受影响的会员ID列表
	SweepExpired(ctx context.Context, today time.Time) (int64, []uint64, error)
}

// Transaction 事务执行接口, 由 data 层实现
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// SubscriptionUsecase 订阅生命周期业务逻辑
type SubscriptionUsecase struct {
	svcRepo    ServiceRepo
	custRepo   CustomerRepo
	subRepo    SubscriptionRepo
	freezeRepo FreezeHistoryRepo
	bioRepo    BiometricRepo
	tm         Transaction
	rs         *redsync.Redsync
	log        *log.Helper
}

// NewSubscriptionUsecase 创建订阅生命周期用例
func NewSubscriptionUsecase(
	svcRepo ServiceRepo,
	custRepo CustomerRepo,
	subRepo SubscriptionRepo,
	freezeRepo FreezeHistoryRepo,
	bioRepo BiometricRepo,
	tm Transaction,
	rs *redsync.Redsync,
	logger log.Logger,
) *SubscriptionUsecase {
	return &SubscriptionUsecase{
		svcRepo:    svcRepo,
		custRepo:   custRepo,
		subRepo:    subRepo,
		freezeRepo: freezeRepo,
		bioRepo:    bioRepo,
		tm:         tm,
		rs:         rs,
		log:        log.NewHelper(logger),
	}
}

// GetSubscription 获取订阅详情, 顺带修复缺失权益类型的历史记录
func (uc *SubscriptionUsecase) GetSubscription(ctx context.Context, id uint64) (*Subscription, error) {
	sub, err := uc.subRepo.GetSubscription(ctx, id)
	if err != nil || sub == nil {
		return sub, err
	}
	if sub.EntitlementType == "" {
		if svc, err := uc.svcRepo.GetService(ctx, sub.ServiceID); err == nil && svc != nil {
			sub.EntitlementType = DeriveEntitlementType(svc)
		}
	}
	return sub, nil
}

// ListServices 服务目录列表 (前台开卡选项用)
func (uc *SubscriptionUsecase) ListServices(ctx context.Context) ([]*Service, error) {
	return uc.svcRepo.ListServices(ctx)
}

// DateOnly 截断到 UTC 日零点, 订阅的起止日期统一用日粒度比较
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today 当前 UTC 日期
func Today() time.Time {
	return DateOnly(time.Now())
}
