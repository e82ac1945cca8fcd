package service

import (
	"context"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/auth"
	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// SubscriptionService 订阅生命周期服务
type SubscriptionService struct {
	uc *biz.SubscriptionUsecase
}

// NewSubscriptionService 创建订阅服务实例
func NewSubscriptionService(uc *biz.SubscriptionUsecase) *SubscriptionService {
	return &SubscriptionService{uc: uc}
}

// operatorID 操作者员工ID, 网关注入的 context 身份优先, 请求体字段兜底
func operatorID(ctx context.Context, fromReq uint64) uint64 {
	if staffID, ok := auth.GetStaffIDFromContext(ctx); ok && staffID > 0 {
		return staffID
	}
	return fromReq
}

// CreateSubscriptionRequest 创建订阅请求
type CreateSubscriptionRequest struct {
	CustomerID uint64 `json:"customer_id"`
	ServiceID  uint64 `json:"service_id"`
	BranchID   uint64 `json:"branch_id"`
	// StartDate 格式 YYYY-MM-DD, 为空默认今天
	StartDate string `json:"start_date"`
	// EntitlementType 显式指定权益类型, 为空按服务类目推导
	EntitlementType string `json:"entitlement_type"`
	// Size 显式指定权益数量 (金币数或课时数)
	Size      *int   `json:"size"`
	CreatedBy uint64 `json:"created_by"`
}

// SubscriptionReply 订阅操作应答
type SubscriptionReply struct {
	Subscription *SubscriptionDTO `json:"subscription"`
}

// CreateSubscription 创建订阅
func (s *SubscriptionService) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*SubscriptionReply, error) {
	if req.CustomerID == 0 || req.ServiceID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}

	sub, err := s.uc.CreateSubscription(ctx, biz.CreateSubscriptionParams{
		CustomerID:   req.CustomerID,
		ServiceID:    req.ServiceID,
		BranchID:     req.BranchID,
		CreatedBy:    operatorID(ctx, req.CreatedBy),
		StartDate:    startDate,
		TypeOverride: req.EntitlementType,
		SizeOverride: req.Size,
	})
	if err != nil {
		return nil, err
	}
	return &SubscriptionReply{Subscription: toSubscriptionDTO(sub)}, nil
}

// GetSubscription 获取订阅详情
func (s *SubscriptionService) GetSubscription(ctx context.Context, subscriptionID uint64) (*SubscriptionReply, error) {
	if subscriptionID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	sub, err := s.uc.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	if err := auth.CheckCustomerOwnership(ctx, sub.CustomerID); err != nil {
		return nil, err
	}
	return &SubscriptionReply{Subscription: toSubscriptionDTO(sub)}, nil
}

// RenewSubscriptionRequest 续费请求
type RenewSubscriptionRequest struct {
	SubscriptionID  uint64 `json:"subscription_id"`
	EntitlementType string `json:"entitlement_type"`
	Size            *int   `json:"size"`
	RenewedBy       uint64 `json:"renewed_by"`
}

// RenewSubscription 续费订阅
func (s *SubscriptionService) RenewSubscription(ctx context.Context, req *RenewSubscriptionRequest) (*SubscriptionReply, error) {
	if req.SubscriptionID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	sub, err := s.uc.RenewSubscription(ctx, req.SubscriptionID, operatorID(ctx, req.RenewedBy), &biz.RenewOverrides{
		TypeOverride: req.EntitlementType,
		SizeOverride: req.Size,
	})
	if err != nil {
		return nil, err
	}
	return &SubscriptionReply{Subscription: toSubscriptionDTO(sub)}, nil
}

// FreezeSubscriptionRequest 冻结请求
type FreezeSubscriptionRequest struct {
	SubscriptionID uint64 `json:"subscription_id"`
	Days           int    `json:"days"`
	Reason         string `json:"reason"`
	FrozenBy       uint64 `json:"frozen_by"`
}

// FreezeSubscription 冻结订阅
func (s *SubscriptionService) FreezeSubscription(ctx context.Context, req *FreezeSubscriptionRequest) (*SubscriptionReply, error) {
	if req.SubscriptionID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	sub, err := s.uc.FreezeSubscription(ctx, req.SubscriptionID, req.Days, req.Reason, operatorID(ctx, req.FrozenBy))
	if err != nil {
		return nil, err
	}
	return &SubscriptionReply{Subscription: toSubscriptionDTO(sub)}, nil
}

// UnfreezeSubscriptionRequest 解冻请求
type UnfreezeSubscriptionRequest struct {
	SubscriptionID uint64 `json:"subscription_id"`
	UnfrozenBy     uint64 `json:"unfrozen_by"`
}

// UnfreezeSubscription 解冻订阅
func (s *SubscriptionService) UnfreezeSubscription(ctx context.Context, req *UnfreezeSubscriptionRequest) (*SubscriptionReply, error) {
	if req.SubscriptionID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	sub, err := s.uc.UnfreezeSubscription(ctx, req.SubscriptionID, operatorID(ctx, req.UnfrozenBy))
	if err != nil {
		return nil, err
	}
	return &SubscriptionReply{Subscription: toSubscriptionDTO(sub)}, nil
}

// StopSubscriptionRequest 终止请求
type StopSubscriptionRequest struct {
	SubscriptionID uint64 `json:"subscription_id"`
	Reason         string `json:"reason"`
	StoppedBy      uint64 `json:"stopped_by"`
}

// StopSubscription 终止订阅
func (s *SubscriptionService) StopSubscription(ctx context.Context, req *StopSubscriptionRequest) (*SubscriptionReply, error) {
	if req.SubscriptionID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	sub, err := s.uc.StopSubscription(ctx, req.SubscriptionID, req.Reason, operatorID(ctx, req.StoppedBy))
	if err != nil {
		return nil, err
	}
	return &SubscriptionReply{Subscription: toSubscriptionDTO(sub)}, nil
}

// CreditEntitlementRequest 权益回补请求 (冻结补偿等人工流程)
type CreditEntitlementRequest struct {
	SubscriptionID uint64 `json:"subscription_id"`
	Amount         int    `json:"amount"`
	CreditedBy     uint64 `json:"credited_by"`
}

// CreditEntitlementReply 权益回补应答
type CreditEntitlementReply struct {
	// Remaining 回补后的余量, -1 表示时间型订阅无计数器
	Remaining int `json:"remaining"`
}

// CreditEntitlement 人工回补权益
func (s *SubscriptionService) CreditEntitlement(ctx context.Context, req *CreditEntitlementRequest) (*CreditEntitlementReply, error) {
	if req.SubscriptionID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	remaining, err := s.uc.CreditEntitlement(ctx, req.SubscriptionID, req.Amount, operatorID(ctx, req.CreditedBy))
	if err != nil {
		return nil, err
	}
	return &CreditEntitlementReply{Remaining: remaining}, nil
}

// ServiceDTO 服务项目对外表示
type ServiceDTO struct {
	ServiceID    uint64  `json:"service_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	DurationDays int     `json:"duration_days"`
	ClassLimit   *int    `json:"class_limit,omitempty"`
	IsActive     bool    `json:"is_active"`
}

// ListServicesReply 服务目录应答
type ListServicesReply struct {
	Services []*ServiceDTO `json:"services"`
}

// ListServices 服务目录列表
func (s *SubscriptionService) ListServices(ctx context.Context) (*ListServicesReply, error) {
	services, err := s.uc.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]*ServiceDTO, len(services))
	for i, svc := range services {
		dtos[i] = &ServiceDTO{
			ServiceID:    svc.ID,
			Name:         svc.Name,
			Category:     string(svc.Category),
			Description:  svc.Description,
			Price:        svc.Price,
			DurationDays: svc.DurationDays,
			ClassLimit:   svc.ClassLimit,
			IsActive:     svc.IsActive,
		}
	}
	return &ListServicesReply{Services: dtos}, nil
}

// FreezeHistoryDTO 冻结历史对外表示
type FreezeHistoryDTO struct {
	FreezeHistoryID uint64  `json:"freeze_history_id"`
	SubscriptionID  uint64  `json:"subscription_id"`
	FreezeStart     string  `json:"freeze_start"`
	FreezeEnd       string  `json:"freeze_end"`
	FreezeDays      int     `json:"freeze_days"`
	Reason          string  `json:"reason,omitempty"`
	Cost            float64 `json:"cost"`
	IsActive        bool    `json:"is_active"`
	UnfrozenAt      string  `json:"unfrozen_at,omitempty"`
}

// ListFreezeHistoryReply 冻结历史应答
type ListFreezeHistoryReply struct {
	Freezes []*FreezeHistoryDTO `json:"freezes"`
}

// ListFreezeHistory 订阅的冻结历史
func (s *SubscriptionService) ListFreezeHistory(ctx context.Context, subscriptionID uint64) (*ListFreezeHistoryReply, error) {
	if subscriptionID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	freezes, err := s.uc.ListFreezeHistory(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*FreezeHistoryDTO, len(freezes))
	for i, fh := range freezes {
		dto := &FreezeHistoryDTO{
			FreezeHistoryID: fh.ID,
			SubscriptionID:  fh.SubscriptionID,
			FreezeStart:     fh.FreezeStart.Format(dateLayout),
			FreezeEnd:       fh.FreezeEnd.Format(dateLayout),
			FreezeDays:      fh.FreezeDays,
			Reason:          fh.Reason,
			Cost:            fh.Cost,
			IsActive:        fh.IsActive,
		}
		if fh.UnfrozenAt != nil {
			dto.UnfrozenAt = fh.UnfrozenAt.Format(time.RFC3339)
		}
		dtos[i] = dto
	}
	return &ListFreezeHistoryReply{Freezes: dtos}, nil
}

// SweepExpiredReply 过期清扫应答
type SweepExpiredReply struct {
	SweptCount int64 `json:"swept_count"`
}

// SweepExpired 手动触发过期清扫 (常规路径是定时任务)
func (s *SubscriptionService) SweepExpired(ctx context.Context) (*SweepExpiredReply, error) {
	count, err := s.uc.SweepExpired(ctx)
	if err != nil {
		return nil, err
	}
	return &SweepExpiredReply{SweptCount: count}, nil
}
