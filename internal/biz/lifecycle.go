package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/constants"
	"github.com/yamenmod9/gym-management-system/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-redsync/redsync/v4"
)

// CreateSubscriptionParams 创建订阅参数
type CreateSubscriptionParams struct {
	CustomerID uint64
	ServiceID  uint64
	BranchID   uint64
	// CreatedBy 操作员工ID (操作者身份显式传入, 业务层不读请求上下文)
	CreatedBy uint64
	// StartDate 为空默认今天
	StartDate *time.Time
	// TypeOverride 显式指定权益类型, 为空时按服务类目推导
	TypeOverride string
	// SizeOverride 显式指定权益数量 (金币数或课时数)
	SizeOverride *int
}

// RenewOverrides 续费参数
type RenewOverrides struct {
	TypeOverride string
	SizeOverride *int
}

// lockSubscription 获取订阅级互斥锁
// 正确性由事务内的 CAS 扣减保证, 锁用于让生命周期变更与在途入场校验互斥,
// 未配置 Redis 的单机/测试环境退化为仅数据库保护
func (uc *SubscriptionUsecase) lockSubscription(ctx context.Context, id uint64) (*redsync.Mutex, error) {
	if uc.rs == nil {
		return nil, nil
	}
	mutex := uc.rs.NewMutex(
		fmt.Sprintf(constants.EntryLockKey, id),
		redsync.WithExpiry(constants.LifecycleLockExpiration),
		redsync.WithTries(constants.LifecycleLockTries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		uc.log.Warnf("Failed to acquire lifecycle lock for subscription %d: %v", id, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeConcurrencyConflict)
	}
	return mutex, nil
}

func (uc *SubscriptionUsecase) unlockSubscription(ctx context.Context, mutex *redsync.Mutex) {
	if mutex == nil {
		return
	}
	if _, err := mutex.UnlockContext(ctx); err != nil {
		uc.log.Warnf("Failed to release lifecycle lock: %v", err)
	}
}

// seedCounters 按权益类型初始化计数器
// 数量来源优先级: 调用方覆盖 → 上一期总量 (续费) → 服务配置的课时上限 → 硬兜底
func seedCounters(sub *Subscription, svc *Service, sizeOverride, prevTotal *int) {
	sub.RemainingCoins = nil
	sub.TotalCoins = nil
	sub.RemainingSessions = nil
	sub.TotalSessions = nil

	pick := func(fallback int) int {
		if sizeOverride != nil && *sizeOverride > 0 {
			return *sizeOverride
		}
		if prevTotal != nil && *prevTotal > 0 {
			return *prevTotal
		}
		if svc.HasClassLimit() {
			return *svc.ClassLimit
		}
		return fallback
	}

	switch sub.EntitlementType {
	case constants.EntitlementCoins:
		n := pick(constants.DefaultCoinSeed)
		sub.RemainingCoins = &n
		total := n
		sub.TotalCoins = &total
	case constants.EntitlementSessions, constants.EntitlementTraining:
		n := pick(constants.DefaultSessionSeed)
		sub.RemainingSessions = &n
		total := n
		sub.TotalSessions = &total
	}
	// time_based: 两对计数器均为空
}

// resolveType 解析权益类型, 覆盖值非法时回落到按类目推导
func (uc *SubscriptionUsecase) resolveType(override string, svc *Service) string {
	switch override {
	case constants.EntitlementCoins, constants.EntitlementSessions,
		constants.EntitlementTraining, constants.EntitlementTimeBased:
		return override
	case "":
		return DeriveEntitlementType(svc)
	default:
		uc.log.Warnf("Unknown entitlement type override %q, deriving from service category", override)
		return DeriveEntitlementType(svc)
	}
}

// CreateSubscription 创建订阅
func (uc *SubscriptionUsecase) CreateSubscription(ctx context.Context, p CreateSubscriptionParams) (*Subscription, error) {
	uc.log.Infof("CreateSubscription: customerID=%d, serviceID=%d, branchID=%d, createdBy=%d",
		p.CustomerID, p.ServiceID, p.BranchID, p.CreatedBy)

	customer, err := uc.custRepo.GetCustomer(ctx, p.CustomerID)
	if err != nil {
		uc.log.Errorf("Failed to get customer: %v", err)
		return nil, err
	}
	if customer == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCustomerNotFound)
	}
	if !customer.IsActive {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCustomerInactive)
	}

	svc, err := uc.svcRepo.GetService(ctx, p.ServiceID)
	if err != nil {
		uc.log.Errorf("Failed to get service: %v", err)
		return nil, err
	}
	if svc == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeServiceNotFound)
	}
	if !svc.IsActive {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeServiceInactive)
	}
	if p.SizeOverride != nil && *p.SizeOverride <= 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidSeedSize)
	}

	startDate := Today()
	if p.StartDate != nil {
		startDate = DateOnly(*p.StartDate)
	}

	now := time.Now().UTC()
	sub := &Subscription{
		CustomerID:      p.CustomerID,
		ServiceID:       p.ServiceID,
		BranchID:        p.BranchID,
		StartDate:       startDate,
		EndDate:         startDate.AddDate(0, 0, svc.DurationDays),
		Status:          constants.StatusActive,
		EntitlementType: uc.resolveType(p.TypeOverride, svc),
		CreatedBy:       p.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	seedCounters(sub, svc, p.SizeOverride, nil)

	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		if err := uc.subRepo.CreateSubscription(ctx, sub); err != nil {
			uc.log.Errorf("Failed to create subscription: %v", err)
			return err
		}
		// 激活会员名下休眠的生物识别引用
		return uc.bioRepo.SetActiveForCustomer(ctx, p.CustomerID, true, "", now)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Infof("Subscription %d created for customer %d (%s, ends %s)",
		sub.ID, sub.CustomerID, sub.EntitlementType, sub.EndDate.Format("2006-01-02"))
	return sub, nil
}

// RenewSubscription 续费订阅
// 订阅仍激活且未过期时新周期从旧 end_date 次日起算, 否则从今天起算
func (uc *SubscriptionUsecase) RenewSubscription(ctx context.Context, id uint64, renewedBy uint64, overrides *RenewOverrides) (*Subscription, error) {
	uc.log.Infof("RenewSubscription: subscriptionID=%d, renewedBy=%d", id, renewedBy)

	mutex, err := uc.lockSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	defer uc.unlockSubscription(ctx, mutex)

	sub, err := uc.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}

	svc, err := uc.svcRepo.GetService(ctx, sub.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeServiceNotFound)
	}

	var typeOverride string
	var sizeOverride *int
	if overrides != nil {
		typeOverride = overrides.TypeOverride
		sizeOverride = overrides.SizeOverride
	}
	if sizeOverride != nil && *sizeOverride <= 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidSeedSize)
	}

	today := Today()
	startDate := today
	if sub.Status == constants.StatusActive && !sub.EndDate.Before(today) {
		startDate = sub.EndDate.AddDate(0, 0, 1)
	}

	// 保留上一期配置的总量 (无覆盖时)
	var prevTotal *int
	switch {
	case typeOverride != "" && typeOverride != sub.EntitlementType:
		// 换类型续费, 不继承旧总量
	case sub.EntitlementType == constants.EntitlementCoins:
		prevTotal = sub.TotalCoins
	case sub.EntitlementType == constants.EntitlementSessions || sub.EntitlementType == constants.EntitlementTraining:
		prevTotal = sub.TotalSessions
	}

	if typeOverride != "" {
		sub.EntitlementType = uc.resolveType(typeOverride, svc)
	} else if sub.EntitlementType == "" {
		sub.EntitlementType = DeriveEntitlementType(svc)
	}

	now := time.Now().UTC()
	sub.StartDate = startDate
	sub.EndDate = startDate.AddDate(0, 0, svc.DurationDays)
	sub.Status = constants.StatusActive
	sub.FreezeCount = 0
	sub.TotalFrozenDays = 0
	sub.StopReason = ""
	sub.StoppedAt = nil
	sub.UpdatedAt = now
	seedCounters(sub, svc, sizeOverride, prevTotal)

	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		if err := uc.subRepo.SaveSubscription(ctx, sub); err != nil {
			uc.log.Errorf("Failed to save subscription: %v", err)
			return err
		}
		return uc.bioRepo.SetActiveForCustomer(ctx, sub.CustomerID, true, "", now)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Infof("Subscription %d renewed: %s ~ %s", sub.ID,
		sub.StartDate.Format("2006-01-02"), sub.EndDate.Format("2006-01-02"))
	return sub, nil
}

// FreezeSubscription 冻结订阅
// 冻结会顺延 end_date, 打开一条冻结历史, 并停用生物识别引用 (冻结期间禁止入场)
func (uc *SubscriptionUsecase) FreezeSubscription(ctx context.Context, id uint64, days int, reason string, frozenBy uint64) (*Subscription, error) {
	uc.log.Infof("FreezeSubscription: subscriptionID=%d, days=%d, frozenBy=%d", id, days, frozenBy)

	if days <= 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidFreezeDays)
	}

	mutex, err := uc.lockSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	defer uc.unlockSubscription(ctx, mutex)

	sub, err := uc.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	if sub.Status != constants.StatusActive {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotActive)
	}

	svc, err := uc.svcRepo.GetService(ctx, sub.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeServiceNotFound)
	}
	if sub.FreezeCount >= svc.FreezeCountLimit {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeFreezeLimitReached)
	}
	if sub.TotalFrozenDays+days > svc.FreezeMaxDays {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeFreezeDaysExceeded)
	}

	now := time.Now().UTC()
	today := Today()
	sub.Status = constants.StatusFrozen
	sub.FreezeCount++
	sub.TotalFrozenDays += days
	sub.EndDate = sub.EndDate.AddDate(0, 0, days)
	sub.UpdatedAt = now

	cost := 0.0
	if svc.FreezeIsPaid {
		cost = svc.FreezeCost
	}
	episode := &FreezeHistory{
		SubscriptionID: sub.ID,
		FreezeStart:    today,
		FreezeEnd:      today.AddDate(0, 0, days),
		FreezeDays:     days,
		Reason:         reason,
		Cost:           cost,
		IsActive:       true,
		CreatedAt:      now,
	}

	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		if err := uc.subRepo.SaveSubscription(ctx, sub); err != nil {
			return err
		}
		if err := uc.freezeRepo.AddFreeze(ctx, episode); err != nil {
			return err
		}
		return uc.bioRepo.SetActiveForCustomer(ctx, sub.CustomerID, false, constants.DeactivateReasonFrozen, now)
	})
	if err != nil {
		uc.log.Errorf("Failed to freeze subscription %d: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Subscription %d frozen for %d days, end date extended to %s",
		sub.ID, days, sub.EndDate.Format("2006-01-02"))
	return sub, nil
}

// UnfreezeSubscription 解冻订阅
func (uc *SubscriptionUsecase) UnfreezeSubscription(ctx context.Context, id uint64, unfrozenBy uint64) (*Subscription, error) {
	uc.log.Infof("UnfreezeSubscription: subscriptionID=%d, unfrozenBy=%d", id, unfrozenBy)

	mutex, err := uc.lockSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	defer uc.unlockSubscription(ctx, mutex)

	sub, err := uc.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	if sub.Status != constants.StatusFrozen {
		// 对激活订阅解冻是无效操作, 状态保持不变
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeNotFrozen)
	}

	now := time.Now().UTC()
	sub.Status = constants.StatusActive
	sub.UpdatedAt = now

	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		if err := uc.subRepo.SaveSubscription(ctx, sub); err != nil {
			return err
		}
		if err := uc.freezeRepo.CloseActiveFreeze(ctx, sub.ID, now); err != nil {
			return err
		}
		return uc.bioRepo.SetActiveForCustomer(ctx, sub.CustomerID, true, "", now)
	})
	if err != nil {
		uc.log.Errorf("Failed to unfreeze subscription %d: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Subscription %d unfrozen", sub.ID)
	return sub, nil
}

// StopSubscription 终止订阅
// 仅当会员名下没有其他激活订阅时才停用生物识别引用
func (uc *SubscriptionUsecase) StopSubscription(ctx context.Context, id uint64, reason string, stoppedBy uint64) (*Subscription, error) {
	uc.log.Infof("StopSubscription: subscriptionID=%d, reason=%s, stoppedBy=%d", id, reason, stoppedBy)

	mutex, err := uc.lockSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	defer uc.unlockSubscription(ctx, mutex)

	sub, err := uc.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	if sub.Status == constants.StatusStopped {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeAlreadyStopped)
	}

	now := time.Now().UTC()
	sub.Status = constants.StatusStopped
	sub.StopReason = reason
	sub.StoppedAt = &now
	sub.UpdatedAt = now

	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		if err := uc.subRepo.SaveSubscription(ctx, sub); err != nil {
			return err
		}
		other, err := uc.subRepo.HasOtherActive(ctx, sub.CustomerID, sub.ID)
		if err != nil {
			return err
		}
		if !other {
			return uc.bioRepo.SetActiveForCustomer(ctx, sub.CustomerID, false, constants.DeactivateReasonStopped, now)
		}
		return nil
	})
	if err != nil {
		uc.log.Errorf("Failed to stop subscription %d: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Subscription %d stopped: %s", sub.ID, reason)
	return sub, nil
}

// SweepExpired 批量将过期的激活订阅置为 expired
// 只做 active→expired 的单调翻转, 幂等, 可与读写并发执行
func (uc *SubscriptionUsecase) SweepExpired(ctx context.Context) (int64, error) {
	uc.log.Infof("Starting expired subscription sweep")

	if uc.rs != nil {
		mutex := uc.rs.NewMutex(
			constants.SweepLockKey,
			redsync.WithExpiry(constants.SweepLockExpiration),
			redsync.WithTries(1),
		)
		if err := mutex.LockContext(ctx); err != nil {
			// 另一实例正在清扫; 清扫本身幂等, 直接跳过
			uc.log.Infof("Sweep already in progress elsewhere, skipping")
			return 0, nil
		}
		defer uc.unlockSubscription(ctx, mutex)
	}

	count, customerIDs, err := uc.subRepo.SweepExpired(ctx, Today())
	if err != nil {
		uc.log.Errorf("Failed to sweep expired subscriptions: %v", err)
		return 0, err
	}

	// 受影响会员若已无激活订阅, 停用其生物识别引用
	now := time.Now().UTC()
	seen := make(map[uint64]bool, len(customerIDs))
	for _, customerID := range customerIDs {
		if seen[customerID] {
			continue
		}
		seen[customerID] = true

		active, err := uc.subRepo.GetLatestActiveByCustomer(ctx, customerID)
		if err != nil {
			uc.log.Errorf("Failed to check active subscriptions for customer %d: %v", customerID, err)
			continue
		}
		if active == nil {
			if err := uc.bioRepo.SetActiveForCustomer(ctx, customerID, false, constants.DeactivateReasonExpired, now); err != nil {
				uc.log.Errorf("Failed to deactivate biometrics for customer %d: %v", customerID, err)
			}
		}
	}

	uc.log.Infof("Swept %d expired subscriptions", count)
	return count, nil
}

// ListFreezeHistory 订阅的冻结历史明细
func (uc *SubscriptionUsecase) ListFreezeHistory(ctx context.Context, id uint64) ([]*FreezeHistory, error) {
	sub, err := uc.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	return uc.freezeRepo.ListFreezes(ctx, id)
}

// CreditEntitlement 人工回补权益 (冻结补偿等), 以总量为上限
// 入场闸机永远不会调用这里; 消耗的恢复只能走续费或本补偿流程
func (uc *SubscriptionUsecase) CreditEntitlement(ctx context.Context, id uint64, amount int, creditedBy uint64) (int, error) {
	uc.log.Infof("CreditEntitlement: subscriptionID=%d, amount=%d, creditedBy=%d", id, amount, creditedBy)

	if amount <= 0 {
		return 0, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidSeedSize)
	}

	sub, err := uc.GetSubscription(ctx, id)
	if err != nil {
		return 0, err
	}
	if sub == nil {
		return 0, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	if sub.EntitlementType == constants.EntitlementTimeBased {
		// 时间型订阅没有计数器, 回补无意义
		return -1, nil
	}

	remaining, err := uc.subRepo.CreditCounter(ctx, id, sub.EntitlementType, amount)
	if err != nil {
		uc.log.Errorf("Failed to credit entitlement for subscription %d: %v", id, err)
		return 0, err
	}
	uc.log.Infof("Credited %d to subscription %d, remaining=%d", amount, id, remaining)
	return remaining, nil
}
