package data

import (
	"context"
	"errors"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// freezeHistoryRepo 冻结历史仓库实现
type freezeHistoryRepo struct {
	data *Data
	log  *log.Helper
}

// NewFreezeHistoryRepo 创建冻结历史仓库
func NewFreezeHistoryRepo(data *Data, logger log.Logger) biz.FreezeHistoryRepo {
	return &freezeHistoryRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func toBizFreezeHistory(m *model.FreezeHistory) *biz.FreezeHistory {
	return &biz.FreezeHistory{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		FreezeStart:    m.FreezeStart,
		FreezeEnd:      m.FreezeEnd,
		FreezeDays:     m.FreezeDays,
		Reason:         m.Reason,
		Cost:           m.Cost,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UnfrozenAt:     m.UnfrozenAt,
	}
}

// AddFreeze 新增冻结记录
func (r *freezeHistoryRepo) AddFreeze(ctx context.Context, fh *biz.FreezeHistory) error {
	m := &model.FreezeHistory{
		SubscriptionID: fh.SubscriptionID,
		FreezeStart:    fh.FreezeStart,
		FreezeEnd:      fh.FreezeEnd,
		FreezeDays:     fh.FreezeDays,
		Reason:         fh.Reason,
		Cost:           fh.Cost,
		IsActive:       fh.IsActive,
		CreatedAt:      fh.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to add freeze for subscription %d: %v", fh.SubscriptionID, err)
		return err
	}
	fh.ID = m.ID
	return nil
}

// GetActiveFreeze 获取订阅当前未关闭的冻结记录
func (r *freezeHistoryRepo) GetActiveFreeze(ctx context.Context, subscriptionID uint64) (*biz.FreezeHistory, error) {
	var m model.FreezeHistory
	err := r.data.DB(ctx).
		Where("subscription_id = ? AND is_active = ?", subscriptionID, true).
		Order("freeze_history_id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get active freeze for subscription %d: %v", subscriptionID, err)
		return nil, err
	}
	return toBizFreezeHistory(&m), nil
}

// CloseActiveFreeze 关闭当前冻结记录
func (r *freezeHistoryRepo) CloseActiveFreeze(ctx context.Context, subscriptionID uint64, now time.Time) error {
	err := r.data.DB(ctx).Model(&model.FreezeHistory{}).
		Where("subscription_id = ? AND is_active = ?", subscriptionID, true).
		Updates(map[string]interface{}{
			"is_active":   false,
			"unfrozen_at": now,
		}).Error
	if err != nil {
		r.log.Errorf("Failed to close active freeze for subscription %d: %v", subscriptionID, err)
		return err
	}
	return nil
}

// GetLastFreeze 获取订阅最近一次冻结记录
func (r *freezeHistoryRepo) GetLastFreeze(ctx context.Context, subscriptionID uint64) (*biz.FreezeHistory, error) {
	var m model.FreezeHistory
	err := r.data.DB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("freeze_history_id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get last freeze for subscription %d: %v", subscriptionID, err)
		return nil, err
	}
	return toBizFreezeHistory(&m), nil
}

// ListFreezes 按订阅查询全部冻结记录
func (r *freezeHistoryRepo) ListFreezes(ctx context.Context, subscriptionID uint64) ([]*biz.FreezeHistory, error) {
	var models []model.FreezeHistory
	err := r.data.DB(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("freeze_history_id DESC").
		Find(&models).Error
	if err != nil {
		r.log.Errorf("Failed to list freezes for subscription %d: %v", subscriptionID, err)
		return nil, err
	}
	freezes := make([]*biz.FreezeHistory, len(models))
	for i := range models {
		freezes[i] = toBizFreezeHistory(&models[i])
	}
	return freezes, nil
}
