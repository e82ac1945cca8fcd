package biz

import (
	"context"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// BiometricResult 生物识别校验结果
type BiometricResult struct {
	Approved bool
	Reason   string
	Customer *Customer
}

// BiometricUsecase 生物识别镜像业务逻辑
// 激活/停用只由生命周期变更驱动; 校验永远从当前订阅状态重新推导资格,
// is_active 标志仅用于展示, 避免双份事实来源漂移
type BiometricUsecase struct {
	bioRepo  BiometricRepo
	subRepo  SubscriptionRepo
	custRepo CustomerRepo
	log      *log.Helper
}

// NewBiometricUsecase 创建生物识别用例
func NewBiometricUsecase(
	bioRepo BiometricRepo,
	subRepo SubscriptionRepo,
	custRepo CustomerRepo,
	logger log.Logger,
) *BiometricUsecase {
	return &BiometricUsecase{
		bioRepo:  bioRepo,
		subRepo:  subRepo,
		custRepo: custRepo,
		log:      log.NewHelper(logger),
	}
}

// ValidateBiometric 独立的生物识别资格校验 (闸机硬件直连接口)
// 与 ValidateEntry 不同, 这里只判定资格不扣减权益, 也不落入场审计
func (uc *BiometricUsecase) ValidateBiometric(ctx context.Context, referenceHash string) (*BiometricResult, error) {
	ref, err := uc.bioRepo.GetByHash(ctx, referenceHash)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return &BiometricResult{Approved: false, Reason: constants.ReasonInvalidCredential}, nil
	}

	customer, err := uc.custRepo.GetCustomer(ctx, ref.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return &BiometricResult{Approved: false, Reason: constants.ReasonInvalidCredential}, nil
	}
	if !customer.IsActive {
		return &BiometricResult{Approved: false, Reason: constants.ReasonCustomerInactive, Customer: customer}, nil
	}

	// 重新推导资格: 不信任 is_active 缓存
	sub, err := uc.subRepo.GetLatestActiveByCustomer(ctx, ref.CustomerID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &BiometricResult{Approved: false, Reason: constants.ReasonNoSubscription, Customer: customer}, nil
	}
	if sub.IsDateExpired(time.Now()) {
		return &BiometricResult{Approved: false, Reason: constants.ReasonExpired, Customer: customer}, nil
	}

	if err := uc.bioRepo.TouchLastUsed(ctx, ref.ID, time.Now().UTC()); err != nil {
		uc.log.Warnf("Failed to touch biometric last_used: %v", err)
	}

	return &BiometricResult{Approved: true, Customer: customer}, nil
}

// ListReferences 查询会员名下的生物识别引用
func (uc *BiometricUsecase) ListReferences(ctx context.Context, customerID uint64) ([]*BiometricReference, error) {
	return uc.bioRepo.ListByCustomer(ctx, customerID)
}
