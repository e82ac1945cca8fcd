package service

import (
	"context"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/auth"
	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/constants"
	"github.com/yamenmod9/gym-management-system/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// EntryService 入场校验服务 (闸机/前台共用)
type EntryService struct {
	uc    *biz.EntryUsecase
	bioUc *biz.BiometricUsecase
}

// NewEntryService 创建入场校验服务实例
func NewEntryService(uc *biz.EntryUsecase, bioUc *biz.BiometricUsecase) *EntryService {
	return &EntryService{uc: uc, bioUc: bioUc}
}

// ValidateEntryRequest 入场校验请求, 凭证四选一
type ValidateEntryRequest struct {
	// EntryType 凭证类型: token, barcode, biometric, manual
	EntryType     string `json:"entry_type"`
	Token         string `json:"token"`
	Barcode       string `json:"barcode"`
	BiometricHash string `json:"biometric_hash"`
	// CustomerID 人工放行时由员工指定
	CustomerID uint64 `json:"customer_id"`
	// BranchID 闸机所在门店, 0 不校验门店归属
	BranchID uint64 `json:"branch_id"`
	// Amount 扣减数量, 0 取默认值
	Amount      int    `json:"amount"`
	ProcessedBy uint64 `json:"processed_by"`
}

// ValidateEntryReply 入场校验应答
type ValidateEntryReply struct {
	Approved       bool              `json:"approved"`
	ReasonCode     string            `json:"reason_code,omitempty"`
	Detail         map[string]string `json:"detail,omitempty"`
	EntryLogID     string            `json:"entry_log_id"`
	AmountDeducted int               `json:"amount_deducted"`
	Subscription   *SubscriptionDTO  `json:"subscription,omitempty"`
}

// ValidateEntry 入场校验
// 预期内的拒绝走 200 应答 (approved=false + 原因码), 不是错误
func (s *EntryService) ValidateEntry(ctx context.Context, req *ValidateEntryRequest) (*ValidateEntryReply, error) {
	if req.EntryType == "" {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCredentialRequired)
	}
	if req.EntryType == constants.EntryTypeManual {
		// 人工放行必须有员工身份
		if operatorID(ctx, req.ProcessedBy) == 0 {
			return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
		}
	}

	result, err := s.uc.ValidateEntry(ctx, biz.ValidateEntryParams{
		Credential: biz.Credential{
			Kind:          req.EntryType,
			Token:         req.Token,
			Barcode:       req.Barcode,
			BiometricHash: req.BiometricHash,
			CustomerID:    req.CustomerID,
		},
		BranchID:    req.BranchID,
		Amount:      req.Amount,
		ProcessedBy: operatorID(ctx, req.ProcessedBy),
	})
	if err != nil {
		return nil, err
	}

	return &ValidateEntryReply{
		Approved:       result.Approved,
		ReasonCode:     result.ReasonCode,
		Detail:         result.Detail,
		EntryLogID:     result.EntryLogID,
		AmountDeducted: result.AmountDeducted,
		Subscription:   toSubscriptionDTO(result.Subscription),
	}, nil
}

// IssueTokenRequest 门禁令牌签发请求
type IssueTokenRequest struct {
	CustomerID     uint64 `json:"customer_id"`
	SubscriptionID uint64 `json:"subscription_id"`
	// TTLSeconds 有效期秒数, 0 用服务端默认值
	TTLSeconds int `json:"ttl_seconds"`
}

// IssueTokenReply 门禁令牌签发应答
type IssueTokenReply struct {
	Token      string `json:"token"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// IssueToken 签发限时门禁令牌 (客户端展示二维码用)
func (s *EntryService) IssueToken(ctx context.Context, req *IssueTokenRequest) (*IssueTokenReply, error) {
	if req.CustomerID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	// 会员只能给自己签发
	if err := auth.CheckCustomerOwnership(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	token, err := s.uc.IssueAccessToken(ctx, req.CustomerID, req.SubscriptionID, ttl)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTL
	}
	return &IssueTokenReply{Token: token, TTLSeconds: int(ttl / time.Second)}, nil
}

// EntryLogDTO 入场记录对外表示
type EntryLogDTO struct {
	EntryLogID     string `json:"entry_log_id"`
	CustomerID     uint64 `json:"customer_id,omitempty"`
	SubscriptionID uint64 `json:"subscription_id,omitempty"`
	BranchID       uint64 `json:"branch_id"`
	EntryType      string `json:"entry_type"`
	Approved       bool   `json:"approved"`
	ReasonCode     string `json:"reason_code,omitempty"`
	AmountDeducted int    `json:"amount_deducted"`
	OccurredAt     string `json:"occurred_at"`
}

// ListEntryHistoryReply 入场历史应答
type ListEntryHistoryReply struct {
	Entries  []*EntryLogDTO `json:"entries"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// ListEntryHistory 会员入场历史
func (s *EntryService) ListEntryHistory(ctx context.Context, customerID uint64, page, pageSize int) (*ListEntryHistoryReply, error) {
	if customerID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	if err := auth.CheckCustomerOwnership(ctx, customerID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}

	logs, total, err := s.uc.ListEntryHistory(ctx, customerID, page, pageSize)
	if err != nil {
		return nil, err
	}

	entries := make([]*EntryLogDTO, len(logs))
	for i, e := range logs {
		dto := &EntryLogDTO{
			EntryLogID:     e.ExternalID,
			BranchID:       e.BranchID,
			EntryType:      e.EntryType,
			Approved:       e.Approved,
			ReasonCode:     e.ReasonCode,
			AmountDeducted: e.AmountDeducted,
			OccurredAt:     e.OccurredAt.Format(time.RFC3339),
		}
		if e.CustomerID != nil {
			dto.CustomerID = *e.CustomerID
		}
		if e.SubscriptionID != nil {
			dto.SubscriptionID = *e.SubscriptionID
		}
		entries[i] = dto
	}
	return &ListEntryHistoryReply{Entries: entries, Total: total, Page: page, PageSize: pageSize}, nil
}

// ValidateBiometricRequest 生物识别资格校验请求 (闸机硬件直连)
type ValidateBiometricRequest struct {
	ReferenceHash string `json:"reference_hash"`
}

// ValidateBiometricReply 生物识别资格校验应答
type ValidateBiometricReply struct {
	Approved     bool   `json:"approved"`
	Reason       string `json:"reason,omitempty"`
	CustomerID   uint64 `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// ValidateBiometric 生物识别资格校验, 只判定资格不扣减权益
func (s *EntryService) ValidateBiometric(ctx context.Context, req *ValidateBiometricRequest) (*ValidateBiometricReply, error) {
	if req.ReferenceHash == "" {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	result, err := s.bioUc.ValidateBiometric(ctx, req.ReferenceHash)
	if err != nil {
		return nil, err
	}
	reply := &ValidateBiometricReply{Approved: result.Approved, Reason: result.Reason}
	if result.Customer != nil {
		reply.CustomerID = result.Customer.ID
		reply.CustomerName = result.Customer.FullName
	}
	return reply, nil
}

// BiometricReferenceDTO 生物识别引用对外表示
type BiometricReferenceDTO struct {
	BiometricReferenceID uint64 `json:"biometric_reference_id"`
	CustomerID           uint64 `json:"customer_id"`
	IsActive             bool   `json:"is_active"`
	LastUsed             string `json:"last_used,omitempty"`
	DeactivationReason   string `json:"deactivation_reason,omitempty"`
}

// ListBiometricReferencesReply 生物识别引用列表应答
type ListBiometricReferencesReply struct {
	References []*BiometricReferenceDTO `json:"references"`
}

// ListBiometricReferences 查询会员名下的生物识别引用
func (s *EntryService) ListBiometricReferences(ctx context.Context, customerID uint64) (*ListBiometricReferencesReply, error) {
	if customerID == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}
	if err := auth.CheckCustomerOwnership(ctx, customerID); err != nil {
		return nil, err
	}

	refs, err := s.bioUc.ListReferences(ctx, customerID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*BiometricReferenceDTO, len(refs))
	for i, r := range refs {
		dto := &BiometricReferenceDTO{
			BiometricReferenceID: r.ID,
			CustomerID:           r.CustomerID,
			IsActive:             r.IsActive,
			DeactivationReason:   r.DeactivationReason,
		}
		if r.LastUsed != nil {
			dto.LastUsed = r.LastUsed.Format(time.RFC3339)
		}
		dtos[i] = dto
	}
	return &ListBiometricReferencesReply{References: dtos}, nil
}
