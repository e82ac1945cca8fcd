package data

import (
	"context"
	"errors"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/constants"
	"github.com/yamenmod9/gym-management-system/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// subscriptionRepo 订阅仓库实现
type subscriptionRepo struct {
	data *Data
	log  *log.Helper
}

// NewSubscriptionRepo 创建订阅仓库
func NewSubscriptionRepo(data *Data, logger log.Logger) biz.SubscriptionRepo {
	return &subscriptionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func toBizSubscription(m *model.Subscription) *biz.Subscription {
	return &biz.Subscription{
		ID:                m.ID,
		CustomerID:        m.CustomerID,
		ServiceID:         m.ServiceID,
		BranchID:          m.BranchID,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		Status:            m.Status,
		EntitlementType:   m.EntitlementType,
		RemainingCoins:    m.RemainingCoins,
		TotalCoins:        m.TotalCoins,
		RemainingSessions: m.RemainingSessions,
		TotalSessions:     m.TotalSessions,
		FreezeCount:       m.FreezeCount,
		TotalFrozenDays:   m.TotalFrozenDays,
		StopReason:        m.StopReason,
		StoppedAt:         m.StoppedAt,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toModelSubscription(s *biz.Subscription) *model.Subscription {
	return &model.Subscription{
		ID:                s.ID,
		CustomerID:        s.CustomerID,
		ServiceID:         s.ServiceID,
		BranchID:          s.BranchID,
		StartDate:         s.StartDate,
		EndDate:           s.EndDate,
		Status:            s.Status,
		EntitlementType:   s.EntitlementType,
		RemainingCoins:    s.RemainingCoins,
		TotalCoins:        s.TotalCoins,
		RemainingSessions: s.RemainingSessions,
		TotalSessions:     s.TotalSessions,
		FreezeCount:       s.FreezeCount,
		TotalFrozenDays:   s.TotalFrozenDays,
		StopReason:        s.StopReason,
		StoppedAt:         s.StoppedAt,
		CreatedBy:         s.CreatedBy,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// counterColumn 权益类型对应的计数器列
func counterColumn(entitlementType string) (string, bool) {
	switch entitlementType {
	case constants.EntitlementCoins:
		return "remaining_coins", true
	case constants.EntitlementSessions, constants.EntitlementTraining:
		return "remaining_sessions", true
	default:
		return "", false
	}
}

// GetSubscription 获取订阅
func (r *subscriptionRepo) GetSubscription(ctx context.Context, id uint64) (*biz.Subscription, error) {
	var m model.Subscription
	err := r.data.DB(ctx).Where("subscription_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get subscription %d: %v", id, err)
		return nil, err
	}
	return toBizSubscription(&m), nil
}

// CreateSubscription 创建订阅
func (r *subscriptionRepo) CreateSubscription(ctx context.Context, sub *biz.Subscription) error {
	m := toModelSubscription(sub)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to create subscription for customer %d: %v", sub.CustomerID, err)
		return err
	}
	sub.ID = m.ID
	return nil
}

// SaveSubscription 保存订阅
func (r *subscriptionRepo) SaveSubscription(ctx context.Context, sub *biz.Subscription) error {
	if err := r.data.DB(ctx).Save(toModelSubscription(sub)).Error; err != nil {
		r.log.Errorf("Failed to save subscription %d: %v", sub.ID, err)
		return err
	}
	return nil
}

// GetLatestActiveByCustomer 会员最近创建的激活订阅
// created_at 相同按 subscription_id 倒序兜底, 保证解析结果确定
func (r *subscriptionRepo) GetLatestActiveByCustomer(ctx context.Context, customerID uint64) (*biz.Subscription, error) {
	var m model.Subscription
	err := r.data.DB(ctx).
		Where("customer_id = ? AND status = ?", customerID, constants.StatusActive).
		Order("created_at DESC, subscription_id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get active subscription for customer %d: %v", customerID, err)
		return nil, err
	}
	return toBizSubscription(&m), nil
}

// GetLatestExpiredByCustomer 会员最近一条已过期订阅
func (r *subscriptionRepo) GetLatestExpiredByCustomer(ctx context.Context, customerID uint64) (*biz.Subscription, error) {
	var m model.Subscription
	err := r.data.DB(ctx).
		Where("customer_id = ? AND status = ?", customerID, constants.StatusExpired).
		Order("end_date DESC, subscription_id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get expired subscription for customer %d: %v", customerID, err)
		return nil, err
	}
	return toBizSubscription(&m), nil
}

// HasOtherActive 会员在 exceptID 之外是否还有激活订阅
func (r *subscriptionRepo) HasOtherActive(ctx context.Context, customerID, exceptID uint64) (bool, error) {
	var count int64
	err := r.data.DB(ctx).Model(&model.Subscription{}).
		Where("customer_id = ? AND status = ? AND subscription_id <> ?",
			customerID, constants.StatusActive, exceptID).
		Count(&count).Error
	if err != nil {
		r.log.Errorf("Failed to count active subscriptions for customer %d: %v", customerID, err)
		return false, err
	}
	return count > 0, nil
}

// DeductCounter 条件更新做原子扣减 (CAS)
// WHERE 里同时校验状态和余量: 并发冻结/终止或余量被抢光时更新不命中,
// 地板为零由 GREATEST 保证, 永远不会扣成负数
func (r *subscriptionRepo) DeductCounter(ctx context.Context, id uint64, entitlementType string, amount int) (int, bool, error) {
	column, ok := counterColumn(entitlementType)
	if !ok {
		// time_based 没有计数器, 视为空操作成功
		return -1, true, nil
	}

	result := r.data.DB(ctx).Model(&model.Subscription{}).
		Where("subscription_id = ? AND status = ? AND "+column+" > 0",
			id, constants.StatusActive).
		Updates(map[string]interface{}{
			column:       gorm.Expr("GREATEST("+column+" - ?, 0)", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.Errorf("Failed to deduct %s for subscription %d: %v", column, id, result.Error)
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}

	remaining, err := r.readCounter(ctx, id, column)
	if err != nil {
		return 0, false, err
	}
	return remaining, true, nil
}

// readCounter 读回扣减/回补后的余量
func (r *subscriptionRepo) readCounter(ctx context.Context, id uint64, column string) (int, error) {
	var values []int
	err := r.data.DB(ctx).Model(&model.Subscription{}).
		Where("subscription_id = ?", id).
		Pluck(column, &values).Error
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return values[0], nil
}

// CreditCounter 回补计数器, 以 total 为上限
func (r *subscriptionRepo) CreditCounter(ctx context.Context, id uint64, entitlementType string, amount int) (int, error) {
	column, ok := counterColumn(entitlementType)
	if !ok {
		return -1, nil
	}
	totalColumn := "total_coins"
	if column == "remaining_sessions" {
		totalColumn = "total_sessions"
	}

	result := r.data.DB(ctx).Model(&model.Subscription{}).
		Where("subscription_id = ?", id).
		Updates(map[string]interface{}{
			column:       gorm.Expr("LEAST("+column+" + ?, "+totalColumn+")", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.Errorf("Failed to credit %s for subscription %d: %v", column, id, result.Error)
		return 0, result.Error
	}
	return r.readCounter(ctx, id, column)
}

// SweepExpired 批量将过期的激活订阅置为 expired
// 先查受影响会员, 再做单条条件更新; 只做 active→expired 的单调翻转, 幂等
func (r *subscriptionRepo) SweepExpired(ctx context.Context, today time.Time) (int64, []uint64, error) {
	var customerIDs []uint64
	if err := r.data.DB(ctx).Model(&model.Subscription{}).
		Where("end_date < ? AND status = ?", today, constants.StatusActive).
		Distinct().
		Pluck("customer_id", &customerIDs).Error; err != nil {
		r.log.Errorf("Failed to query expired subscriptions: %v", err)
		return 0, nil, err
	}

	if len(customerIDs) == 0 {
		return 0, []uint64{}, nil
	}

	result := r.data.DB(ctx).Model(&model.Subscription{}).
		Where("end_date < ? AND status = ?", today, constants.StatusActive).
		Updates(map[string]interface{}{
			"status":     constants.StatusExpired,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.Errorf("Failed to sweep expired subscriptions: %v", result.Error)
		return 0, nil, result.Error
	}

	r.log.Infof("Swept %d expired subscriptions", result.RowsAffected)
	return result.RowsAffected, customerIDs, nil
}
