package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/constants"
	"github.com/yamenmod9/gym-management-system/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
)

// Credential 入场凭证, 四选一
type Credential struct {
	Kind          string // token, barcode, biometric, manual
	Token         string
	Barcode       string
	BiometricHash string
	// CustomerID 人工放行时由员工指定
	CustomerID uint64
}

// ValidateEntryParams 入场校验参数
type ValidateEntryParams struct {
	Credential Credential
	// BranchID 为 0 时不校验门店归属
	BranchID uint64
	// Amount 扣减数量, 0 取默认值 1
	Amount int
	// ProcessedBy 人工放行/代办时的员工ID
	ProcessedBy uint64
}

// EntryResult 入场校验结果
// 预期内的拒绝不是 error: 无论通过与否都返回结构化结果并落审计
type EntryResult struct {
	Approved   bool
	ReasonCode string
	// Detail 给前端的补充信息 (过期日期/冻结原因等), 原因码本身保持稳定
	Detail         map[string]string
	EntryLogID     string
	Subscription   *Subscription
	AmountDeducted int
}

// EntryUsecase 入场校验业务逻辑
type EntryUsecase struct {
	custRepo   CustomerRepo
	subRepo    SubscriptionRepo
	svcRepo    ServiceRepo
	freezeRepo FreezeHistoryRepo
	entryRepo  EntryLogRepo
	bioRepo    BiometricRepo
	tokens     *AccessTokenIssuer
	tm         Transaction
	rs         *redsync.Redsync
	log        *log.Helper
}

// NewEntryUsecase 创建入场校验用例
func NewEntryUsecase(
	custRepo CustomerRepo,
	subRepo SubscriptionRepo,
	svcRepo ServiceRepo,
	freezeRepo FreezeHistoryRepo,
	entryRepo EntryLogRepo,
	bioRepo BiometricRepo,
	tokens *AccessTokenIssuer,
	tm Transaction,
	rs *redsync.Redsync,
	logger log.Logger,
) *EntryUsecase {
	return &EntryUsecase{
		custRepo:   custRepo,
		subRepo:    subRepo,
		svcRepo:    svcRepo,
		freezeRepo: freezeRepo,
		entryRepo:  entryRepo,
		bioRepo:    bioRepo,
		tokens:     tokens,
		tm:         tm,
		rs:         rs,
		log:        log.NewHelper(logger),
	}
}

// IssueAccessToken 为会员签发限时门禁令牌
func (uc *EntryUsecase) IssueAccessToken(ctx context.Context, customerID, subscriptionID uint64, ttl time.Duration) (string, error) {
	if ttl < 0 || ttl > constants.MaxTokenTTL {
		return "", pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeTokenTTLInvalid)
	}
	customer, err := uc.custRepo.GetCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	if customer == nil {
		return "", pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCustomerNotFound)
	}
	if !customer.IsActive {
		return "", pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCustomerInactive)
	}
	return uc.tokens.Issue(customerID, subscriptionID, ttl)
}

// resolution 凭证解析结果
type resolution struct {
	entryType      string
	customerID     uint64 // 0 表示未解析出会员
	subscriptionID uint64 // token 内显式指定的订阅
	biometricID    uint64 // 命中的生物识别引用, 成功后更新 last_used
	reason         string // 非空表示解析失败
}

// resolveCredential 第一道检查: 凭证 → 会员
func (uc *EntryUsecase) resolveCredential(ctx context.Context, cred Credential) (resolution, error) {
	switch cred.Kind {
	case constants.EntryTypeToken:
		claims, expired, err := uc.tokens.Verify(cred.Token)
		if expired {
			return resolution{entryType: constants.EntryTypeToken, reason: constants.ReasonExpiredToken}, nil
		}
		if err != nil {
			return resolution{entryType: constants.EntryTypeToken, reason: constants.ReasonInvalidCredential}, nil
		}
		return resolution{
			entryType:      constants.EntryTypeToken,
			customerID:     claims.CustomerID,
			subscriptionID: claims.SubscriptionID,
		}, nil

	case constants.EntryTypeBarcode:
		customer, err := uc.custRepo.GetCustomerByBarcode(ctx, cred.Barcode)
		if err != nil {
			return resolution{}, err
		}
		if customer == nil {
			return resolution{entryType: constants.EntryTypeBarcode, reason: constants.ReasonInvalidCredential}, nil
		}
		return resolution{entryType: constants.EntryTypeBarcode, customerID: customer.ID}, nil

	case constants.EntryTypeBiometric:
		ref, err := uc.bioRepo.GetByHash(ctx, cred.BiometricHash)
		if err != nil {
			return resolution{}, err
		}
		if ref == nil {
			return resolution{entryType: constants.EntryTypeBiometric, reason: constants.ReasonInvalidCredential}, nil
		}
		// is_active 只是缓存, 资格由后续订阅检查重新推导
		return resolution{entryType: constants.EntryTypeBiometric, customerID: ref.CustomerID, biometricID: ref.ID}, nil

	case constants.EntryTypeManual:
		if cred.CustomerID == 0 {
			return resolution{entryType: constants.EntryTypeManual, reason: constants.ReasonInvalidCredential}, nil
		}
		return resolution{entryType: constants.EntryTypeManual, customerID: cred.CustomerID}, nil

	default:
		return resolution{}, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCredentialRequired)
	}
}

// appendLog 落一条审计, 写入失败则让整次校验失败 (绝不静默丢弃)
func (uc *EntryUsecase) appendLog(ctx context.Context, e *EntryLog) error {
	e.ExternalID = uuid.New().String()
	now := time.Now().UTC()
	e.OccurredAt = now
	e.CreatedAt = now
	if err := uc.entryRepo.AddEntryLog(ctx, e); err != nil {
		uc.log.Errorf("Failed to write entry log: %v", err)
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeEntryLogFailed)
	}
	return nil
}

func optID(id uint64) *uint64 {
	if id == 0 {
		return nil
	}
	return &id
}

// deny 落拒绝审计并组装结果
func (uc *EntryUsecase) deny(ctx context.Context, p ValidateEntryParams, res resolution, subID uint64, reason string, detail map[string]string) (*EntryResult, error) {
	e := &EntryLog{
		CustomerID:     optID(res.customerID),
		SubscriptionID: optID(subID),
		BranchID:       p.BranchID,
		EntryType:      res.entryType,
		Approved:       false,
		ReasonCode:     reason,
		ProcessedBy:    optID(p.ProcessedBy),
	}
	if err := uc.appendLog(ctx, e); err != nil {
		return nil, err
	}
	uc.log.Infof("Entry denied: customer=%d subscription=%d reason=%s", res.customerID, subID, reason)
	return &EntryResult{
		Approved:   false,
		ReasonCode: reason,
		Detail:     detail,
		EntryLogID: e.ExternalID,
	}, nil
}

// statusDenial 将非激活状态映射为对应的拒绝原因码和补充信息
func (uc *EntryUsecase) statusDenial(ctx context.Context, sub *Subscription) (string, map[string]string) {
	switch sub.Status {
	case constants.StatusFrozen:
		detail := map[string]string{}
		if last, err := uc.freezeRepo.GetLastFreeze(ctx, sub.ID); err == nil && last != nil {
			detail["freeze_reason"] = last.Reason
			detail["freeze_date"] = last.FreezeStart.Format("2006-01-02")
		}
		return constants.ReasonFrozen, detail
	case constants.StatusStopped:
		return constants.ReasonStopped, map[string]string{"stop_reason": sub.StopReason}
	default:
		return constants.ReasonExpired, map[string]string{"end_date": sub.EndDate.Format("2006-01-02")}
	}
}

// exhaustionReason 权益耗尽对应的原因码
func exhaustionReason(entitlementType string) string {
	if entitlementType == constants.EntitlementCoins {
		return constants.ReasonNoCoins
	}
	return constants.ReasonNoSessions
}

// ValidateEntry 入场校验
// 有序短路检查: 凭证 → 会员状态 → 订阅定位 → 订阅状态 → 有效期 → 门店 → 权益余量,
// 全部通过后在订阅级锁 + 事务内完成 CAS 扣减与审计写入
func (uc *EntryUsecase) ValidateEntry(ctx context.Context, p ValidateEntryParams) (*EntryResult, error) {
	amount := p.Amount
	if amount == 0 {
		amount = constants.DefaultDeductAmount
	}
	if amount < 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeDeductAmountInvalid)
	}

	// 1. 凭证解析
	res, err := uc.resolveCredential(ctx, p.Credential)
	if err != nil {
		return nil, err
	}
	if res.reason != "" {
		return uc.deny(ctx, p, res, 0, res.reason, nil)
	}

	// 2. 会员状态
	customer, err := uc.custRepo.GetCustomer(ctx, res.customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return uc.deny(ctx, p, res, 0, constants.ReasonInvalidCredential, nil)
	}
	if !customer.IsActive {
		return uc.deny(ctx, p, res, 0, constants.ReasonCustomerInactive, nil)
	}

	// 3. 订阅定位: 令牌显式指定优先, 否则取最近创建的激活订阅
	var sub *Subscription
	if res.subscriptionID != 0 {
		sub, err = uc.subRepo.GetSubscription(ctx, res.subscriptionID)
		if err != nil {
			return nil, err
		}
		if sub != nil && sub.CustomerID != res.customerID {
			// 令牌里的订阅不属于持有人, 按无效凭证处理
			return uc.deny(ctx, p, res, 0, constants.ReasonInvalidCredential, nil)
		}
	} else {
		sub, err = uc.subRepo.GetLatestActiveByCustomer(ctx, res.customerID)
		if err != nil {
			return nil, err
		}
	}
	if sub == nil {
		detail := map[string]string{}
		if prev, err := uc.subRepo.GetLatestExpiredByCustomer(ctx, res.customerID); err == nil && prev != nil {
			detail["had_subscription"] = "true"
			detail["expired_end_date"] = prev.EndDate.Format("2006-01-02")
		}
		return uc.deny(ctx, p, res, 0, constants.ReasonNoSubscription, detail)
	}

	// 历史数据可能缺权益类型, 读取时修复
	if sub.EntitlementType == "" {
		if svc, err := uc.svcRepo.GetService(ctx, sub.ServiceID); err == nil && svc != nil {
			sub.EntitlementType = DeriveEntitlementType(svc)
		}
	}

	// 4. 订阅状态
	if sub.Status != constants.StatusActive {
		reason, detail := uc.statusDenial(ctx, sub)
		return uc.deny(ctx, p, res, sub.ID, reason, detail)
	}

	// 5. 惰性日期检查 (清扫任务未跑到的过期订阅在这里兜住)
	if sub.IsDateExpired(time.Now()) {
		return uc.deny(ctx, p, res, sub.ID, constants.ReasonExpired,
			map[string]string{"end_date": sub.EndDate.Format("2006-01-02")})
	}

	// 6. 门店归属
	if p.BranchID != 0 && sub.BranchID != p.BranchID {
		return uc.deny(ctx, p, res, sub.ID, constants.ReasonBranchMismatch,
			map[string]string{"subscription_branch_id": fmt.Sprintf("%d", sub.BranchID)})
	}

	// 7. 权益余量预检 (真正的扣减在锁内再做一次 CAS)
	if remaining := sub.Remaining(); remaining == 0 {
		return uc.deny(ctx, p, res, sub.ID, exhaustionReason(sub.EntitlementType), nil)
	}

	// 8. 扣减 + 审计, 全有或全无
	return uc.approve(ctx, p, res, sub, amount)
}

// approve 检查全部通过后的提交路径
// 订阅级互斥锁与生命周期操作共用, 事务内重查状态/CAS 扣减,
// 两个并发请求抢最后一个金币时只会有一个成功
func (uc *EntryUsecase) approve(ctx context.Context, p ValidateEntryParams, res resolution, sub *Subscription, amount int) (*EntryResult, error) {
	if uc.rs != nil {
		mutex := uc.rs.NewMutex(
			fmt.Sprintf(constants.EntryLockKey, sub.ID),
			redsync.WithExpiry(constants.EntryLockExpiration),
			redsync.WithTries(constants.EntryLockTries),
		)
		if err := mutex.LockContext(ctx); err != nil {
			uc.log.Warnf("Failed to acquire entry lock for subscription %d: %v", sub.ID, err)
			return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeConcurrencyConflict)
		}
		defer func() {
			if _, err := mutex.UnlockContext(ctx); err != nil {
				uc.log.Warnf("Failed to release entry lock for subscription %d: %v", sub.ID, err)
			}
		}()
	}

	var result *EntryResult
	err := uc.tm.Exec(ctx, func(ctx context.Context) error {
		deducted := 0
		timeBased := sub.EntitlementType == constants.EntitlementTimeBased

		if timeBased {
			// 时间型不扣减, 但仍要在事务内重查状态:
			// 锁窗口之外提交的冻结/终止不能放行
			current, err := uc.subRepo.GetSubscription(ctx, sub.ID)
			if err != nil {
				return err
			}
			if current == nil || current.Status != constants.StatusActive {
				if current != nil {
					sub = current
				}
				reason, detail := uc.statusDenial(ctx, sub)
				r, err := uc.deny(ctx, p, res, sub.ID, reason, detail)
				if err != nil {
					return err
				}
				result = r
				return nil
			}
			sub = current
		} else {
			remaining, ok, err := uc.subRepo.DeductCounter(ctx, sub.ID, sub.EntitlementType, amount)
			if err != nil {
				return err
			}
			if !ok {
				// CAS 未命中: 余量已被并发消耗, 或状态被并发变更
				current, err := uc.subRepo.GetSubscription(ctx, sub.ID)
				if err != nil {
					return err
				}
				reason := exhaustionReason(sub.EntitlementType)
				detail := map[string]string(nil)
				if current != nil {
					sub = current
					if current.Status != constants.StatusActive {
						reason, detail = uc.statusDenial(ctx, current)
					}
				}
				r, err := uc.deny(ctx, p, res, sub.ID, reason, detail)
				if err != nil {
					return err
				}
				result = r
				return nil
			}
			deducted = amount
			applyDeduction(sub, remaining)
		}

		e := &EntryLog{
			CustomerID:     optID(res.customerID),
			SubscriptionID: optID(sub.ID),
			BranchID:       p.BranchID,
			EntryType:      res.entryType,
			Approved:       true,
			AmountDeducted: deducted,
			ProcessedBy:    optID(p.ProcessedBy),
		}
		if err := uc.appendLog(ctx, e); err != nil {
			return err
		}

		if res.biometricID != 0 {
			if err := uc.bioRepo.TouchLastUsed(ctx, res.biometricID, time.Now().UTC()); err != nil {
				uc.log.Warnf("Failed to touch biometric last_used: %v", err)
			}
		}

		snapshot := *sub
		result = &EntryResult{
			Approved:       true,
			EntryLogID:     e.ExternalID,
			Subscription:   &snapshot,
			AmountDeducted: deducted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Approved {
		uc.log.Infof("Entry approved: customer=%d subscription=%d type=%s deducted=%d",
			res.customerID, sub.ID, res.entryType, result.AmountDeducted)
	}
	return result, nil
}

// ListEntryHistory 会员入场历史 (客户端"我的记录"页)
func (uc *EntryUsecase) ListEntryHistory(ctx context.Context, customerID uint64, page, pageSize int) ([]*EntryLog, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return uc.entryRepo.ListByCustomer(ctx, customerID, page, pageSize)
}
