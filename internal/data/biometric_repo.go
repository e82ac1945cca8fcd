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

// biometricRepo 生物识别引用仓库实现
type biometricRepo struct {
	data *Data
	log  *log.Helper
}

// NewBiometricRepo 创建生物识别引用仓库
func NewBiometricRepo(data *Data, logger log.Logger) biz.BiometricRepo {
	return &biometricRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func toBizBiometric(m *model.BiometricReference) *biz.BiometricReference {
	return &biz.BiometricReference{
		ID:                 m.ID,
		CustomerID:         m.CustomerID,
		ReferenceHash:      m.ReferenceHash,
		IsActive:           m.IsActive,
		LastUsed:           m.LastUsed,
		DeactivatedAt:      m.DeactivatedAt,
		DeactivationReason: m.DeactivationReason,
		CreatedAt:          m.CreatedAt,
	}
}

// GetByHash 按特征哈希定位引用
func (r *biometricRepo) GetByHash(ctx context.Context, referenceHash string) (*biz.BiometricReference, error) {
	var m model.BiometricReference
	err := r.data.DB(ctx).Where("reference_hash = ?", referenceHash).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get biometric reference by hash: %v", err)
		return nil, err
	}
	return toBizBiometric(&m), nil
}

// ListByCustomer 会员名下全部引用
func (r *biometricRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]*biz.BiometricReference, error) {
	var models []model.BiometricReference
	err := r.data.DB(ctx).
		Where("customer_id = ?", customerID).
		Order("biometric_reference_id ASC").
		Find(&models).Error
	if err != nil {
		r.log.Errorf("Failed to list biometric references for customer %d: %v", customerID, err)
		return nil, err
	}
	refs := make([]*biz.BiometricReference, len(models))
	for i := range models {
		refs[i] = toBizBiometric(&models[i])
	}
	return refs, nil
}

// SetActiveForCustomer 批量切换会员名下引用的激活状态
func (r *biometricRepo) SetActiveForCustomer(ctx context.Context, customerID uint64, active bool, reason string, now time.Time) error {
	updates := map[string]interface{}{"is_active": active}
	if active {
		updates["deactivated_at"] = nil
		updates["deactivation_reason"] = ""
	} else {
		updates["deactivated_at"] = now
		updates["deactivation_reason"] = reason
	}
	err := r.data.DB(ctx).Model(&model.BiometricReference{}).
		Where("customer_id = ?", customerID).
		Updates(updates).Error
	if err != nil {
		r.log.Errorf("Failed to set biometric active=%t for customer %d: %v", active, customerID, err)
		return err
	}
	return nil
}

// TouchLastUsed 记录引用最近一次使用时间
func (r *biometricRepo) TouchLastUsed(ctx context.Context, id uint64, now time.Time) error {
	err := r.data.DB(ctx).Model(&model.BiometricReference{}).
		Where("biometric_reference_id = ?", id).
		Update("last_used", now).Error
	if err != nil {
		r.log.Errorf("Failed to touch last_used for biometric reference %d: %v", id, err)
		return err
	}
	return nil
}
