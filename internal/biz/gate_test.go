package biz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMember 造一个带激活金币订阅的会员, 返回订阅
func setupMember(t *testing.T, f *fixture, coins int) *Subscription {
	t.Helper()
	f.addCustomer(1, true)
	f.addService(10, CategoryGym, 30, nil)
	sub, err := f.subUc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		CustomerID: 1, ServiceID: 10, BranchID: 1, SizeOverride: intPtr(coins),
	})
	require.NoError(t, err)
	return sub
}

func barcodeParams() ValidateEntryParams {
	return ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeBarcode, Barcode: "GYM-1"},
		BranchID:   1,
	}
}

func TestValidateEntryApprovedDeductsOneCoin(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 10)

	result, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.Empty(t, result.ReasonCode)
	assert.Equal(t, 1, result.AmountDeducted)
	assert.NotEmpty(t, result.EntryLogID)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, 9, *result.Subscription.RemainingCoins)

	stored, _ := f.subRepo.GetSubscription(context.Background(), sub.ID)
	assert.Equal(t, 9, *stored.RemainingCoins)

	logEntry := f.entryRepo.last()
	require.NotNil(t, logEntry)
	assert.True(t, logEntry.Approved)
	assert.Equal(t, constants.EntryTypeBarcode, logEntry.EntryType)
	assert.Equal(t, 1, logEntry.AmountDeducted)
}

func TestValidateEntryUnknownBarcode(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeBarcode, Barcode: "GYM-404"},
	})
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonInvalidCredential, result.ReasonCode)

	// 拒绝同样落审计
	logEntry := f.entryRepo.last()
	require.NotNil(t, logEntry)
	assert.False(t, logEntry.Approved)
	assert.Equal(t, constants.ReasonInvalidCredential, logEntry.ReasonCode)
	assert.Nil(t, logEntry.CustomerID)
}

func TestValidateEntryInactiveCustomer(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)
	f.custRepo.customers[1].IsActive = false

	result, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonCustomerInactive, result.ReasonCode)
}

func TestValidateEntryNoSubscription(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, true)

	result, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonNoSubscription, result.ReasonCode)
}

func TestValidateEntryNoSubscriptionWithExpiredHistory(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 10)

	// 订阅过期后尝试入场
	stored, _ := f.subRepo.GetSubscription(context.Background(), sub.ID)
	stored.Status = constants.StatusExpired
	require.NoError(t, f.subRepo.SaveSubscription(context.Background(), stored))

	result, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonNoSubscription, result.ReasonCode)
	assert.Equal(t, "true", result.Detail["had_subscription"])
	assert.Equal(t, stored.EndDate.Format("2006-01-02"), result.Detail["expired_end_date"])
}

func TestValidateEntryFrozenWithDetail(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 10)

	_, err := f.subUc.FreezeSubscription(context.Background(), sub.ID, 7, "medical leave", 5)
	require.NoError(t, err)

	// 令牌显式指向被冻结的订阅
	token, err := f.tokens.Issue(1, sub.ID, time.Minute)
	require.NoError(t, err)

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeToken, Token: token},
		BranchID:   1,
	})
	require.NoError(t, err)

	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonFrozen, result.ReasonCode)
	assert.Equal(t, "medical leave", result.Detail["freeze_reason"])
	assert.Equal(t, Today().Format("2006-01-02"), result.Detail["freeze_date"])

	// 拒绝不消耗权益
	stored, _ := f.subRepo.GetSubscription(context.Background(), sub.ID)
	assert.Equal(t, 10, *stored.RemainingCoins)
}

func TestValidateEntryStopped(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 10)
	_, err := f.subUc.StopSubscription(context.Background(), sub.ID, "refund", 5)
	require.NoError(t, err)

	token, err := f.tokens.Issue(1, sub.ID, time.Minute)
	require.NoError(t, err)

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeToken, Token: token},
	})
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonStopped, result.ReasonCode)
	assert.Equal(t, "refund", result.Detail["stop_reason"])
}

func TestValidateEntryLazyDateExpiry(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 10)

	// 清扫任务还没跑到: 状态仍是 active 但日期已过
	stored, _ := f.subRepo.GetSubscription(context.Background(), sub.ID)
	stored.EndDate = Today().AddDate(0, 0, -1)
	require.NoError(t, f.subRepo.SaveSubscription(context.Background(), stored))

	result, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonExpired, result.ReasonCode)
	assert.Equal(t, stored.EndDate.Format("2006-01-02"), result.Detail["end_date"])
}

func TestValidateEntryBranchMismatch(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)

	p := barcodeParams()
	p.BranchID = 2
	result, err := f.entryUc.ValidateEntry(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonBranchMismatch, result.ReasonCode)
	assert.Equal(t, "1", result.Detail["subscription_branch_id"])

	// branch_id 为 0 不校验门店
	p.BranchID = 0
	result, err = f.entryUc.ValidateEntry(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestValidateEntryExhaustedCoins(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 1)

	first, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.True(t, first.Approved)

	second, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.False(t, second.Approved)
	assert.Equal(t, constants.ReasonNoCoins, second.ReasonCode)

	stored, _ := f.subRepo.GetSubscription(context.Background(), sub.ID)
	assert.Equal(t, 0, *stored.RemainingCoins)
}

func TestValidateEntryExhaustedSessions(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, true)
	f.addService(10, CategorySwimmingEducation, 30, intPtr(1))
	_, err := f.subUc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		CustomerID: 1, ServiceID: 10, BranchID: 1,
	})
	require.NoError(t, err)

	first, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.True(t, first.Approved)

	second, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	require.NoError(t, err)
	assert.False(t, second.Approved)
	assert.Equal(t, constants.ReasonNoSessions, second.ReasonCode)
}

func TestValidateEntryTimeBasedNeverDeducts(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, true)
	f.addService(10, CategorySwimmingRecreation, 30, nil)
	_, err := f.subUc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		CustomerID: 1, ServiceID: 10, BranchID: 1,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		result, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.Equal(t, 0, result.AmountDeducted)
	}
}

// expiredToken 手工签一个已过期但签名有效的令牌
func expiredToken(t *testing.T, customerID uint64) string {
	t.Helper()
	claims := AccessTokenClaims{
		CustomerID: customerID,
		Purpose:    constants.TokenPurposeGateAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestValidateEntryExpiredToken(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)

	token := expiredToken(t, 1)

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeToken, Token: token},
	})
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonExpiredToken, result.ReasonCode)
}

func TestValidateEntryGarbageToken(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeToken, Token: "not-a-jwt"},
	})
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonInvalidCredential, result.ReasonCode)
}

func TestValidateEntryTokenSubscriptionOwnershipCheck(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 10)
	f.addCustomer(2, true)

	// 令牌里的订阅不属于持有人
	token, err := f.tokens.Issue(2, sub.ID, time.Minute)
	require.NoError(t, err)

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeToken, Token: token},
	})
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, constants.ReasonInvalidCredential, result.ReasonCode)
}

func TestValidateEntryBiometricTouchesLastUsed(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)
	f.bioRepo.refs[7] = &BiometricReference{ID: 7, CustomerID: 1, ReferenceHash: "hash-7", IsActive: true}

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeBiometric, BiometricHash: "hash-7"},
		BranchID:   1,
	})
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.NotNil(t, f.bioRepo.refs[7].LastUsed)
}

func TestValidateEntryBiometricStaleActiveFlagIgnored(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)
	// is_active=false 的引用: 资格由订阅状态重新推导, 仍应放行
	f.bioRepo.refs[7] = &BiometricReference{ID: 7, CustomerID: 1, ReferenceHash: "hash-7", IsActive: false}

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: constants.EntryTypeBiometric, BiometricHash: "hash-7"},
		BranchID:   1,
	})
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestValidateEntryManual(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)

	result, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential:  Credential{Kind: constants.EntryTypeManual, CustomerID: 1},
		BranchID:    1,
		ProcessedBy: 42,
	})
	require.NoError(t, err)
	assert.True(t, result.Approved)

	logEntry := f.entryRepo.last()
	require.NotNil(t, logEntry)
	require.NotNil(t, logEntry.ProcessedBy)
	assert.Equal(t, uint64(42), *logEntry.ProcessedBy)
}

func TestValidateEntryAuditFailureFailsCall(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)
	f.entryRepo.failWrites = true

	_, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
	assert.Error(t, err)
}

func TestValidateEntryUnknownCredentialKind(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)

	_, err := f.entryUc.ValidateEntry(context.Background(), ValidateEntryParams{
		Credential: Credential{Kind: "telepathy"},
	})
	assert.Error(t, err)
	// 凭证类型错误是调用方错误, 不落审计
	assert.Equal(t, 0, f.entryRepo.count())
}

func TestValidateEntryConcurrentLastCoin(t *testing.T) {
	f := newFixture()
	sub := setupMember(t, f, 1)

	var wg sync.WaitGroup
	results := make([]*EntryResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.entryUc.ValidateEntry(context.Background(), barcodeParams())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	approved, denied := 0, 0
	for _, r := range results {
		if r.Approved {
			approved++
		} else {
			denied++
			assert.Equal(t, constants.ReasonNoCoins, r.ReasonCode)
		}
	}
	// 最后一个金币只会放行一人
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, denied)

	stored, _ := f.subRepo.GetSubscription(context.Background(), sub.ID)
	assert.Equal(t, 0, *stored.RemainingCoins)
	// 两次尝试各有一条审计
	assert.Equal(t, 2, f.entryRepo.count())
}

func TestListEntryHistory(t *testing.T) {
	f := newFixture()
	setupMember(t, f, 10)

	for i := 0; i < 3; i++ {
		_, err := f.entryUc.ValidateEntry(context.Background(), barcodeParams())
		require.NoError(t, err)
	}

	logs, total, err := f.entryUc.ListEntryHistory(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, logs, 2)
}

func TestIssueAccessTokenValidation(t *testing.T) {
	f := newFixture()
	f.addCustomer(1, true)
	f.addCustomer(2, false)

	token, err := f.entryUc.IssueAccessToken(context.Background(), 1, 0, time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// 停用会员不能签发
	_, err = f.entryUc.IssueAccessToken(context.Background(), 2, 0, time.Minute)
	assert.Error(t, err)

	// 不存在的会员
	_, err = f.entryUc.IssueAccessToken(context.Background(), 99, 0, time.Minute)
	assert.Error(t, err)

	// 超长有效期被拒绝
	_, err = f.entryUc.IssueAccessToken(context.Background(), 1, 0, constants.MaxTokenTTL+time.Hour)
	assert.Error(t, err)
}
