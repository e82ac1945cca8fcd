package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// 健身房服务错误码定义
// 错误码格式：SSMMEE (6位数字)，其中 SS=14 表示 gym-service
// 模块划分：
//   01: 服务目录/基础档案模块
//   02: 订阅生命周期模块
//   03: 入场校验模块
//   04: 生物识别模块
//   05: 并发/存储模块

// 服务目录/基础档案模块 (140100-140199)
const (
	// ErrCodeServiceNotFound 服务项目不存在错误
	ErrCodeServiceNotFound = 140101
	// ErrCodeServiceInactive 服务项目已下架错误
	ErrCodeServiceInactive = 140102
	// ErrCodeCustomerNotFound 会员不存在错误
	ErrCodeCustomerNotFound = 140103
	// ErrCodeCustomerInactive 会员账户已停用错误
	ErrCodeCustomerInactive = 140104
	// ErrCodeUnknownCategory 无法识别的服务类目错误
	ErrCodeUnknownCategory = 140105
)

// 订阅生命周期模块 (140200-140299)
const (
	// ErrCodeSubscriptionNotFound 订阅不存在错误
	ErrCodeSubscriptionNotFound = 140201
	// ErrCodeSubscriptionNotActive 订阅非激活状态错误
	ErrCodeSubscriptionNotActive = 140202
	// ErrCodeFreezeLimitReached 冻结次数达到上限错误
	ErrCodeFreezeLimitReached = 140203
	// ErrCodeFreezeDaysExceeded 累计冻结天数超限错误
	ErrCodeFreezeDaysExceeded = 140204
	// ErrCodeNotFrozen 订阅未处于冻结状态错误
	ErrCodeNotFrozen = 140205
	// ErrCodeAlreadyStopped 订阅已终止错误
	ErrCodeAlreadyStopped = 140206
	// ErrCodeInvalidFreezeDays 冻结天数无效错误
	ErrCodeInvalidFreezeDays = 140207
	// ErrCodeInvalidSeedSize 权益数量无效错误
	ErrCodeInvalidSeedSize = 140208
)

// 入场校验模块 (140300-140399)
const (
	// ErrCodeCredentialRequired 入场凭证缺失错误
	ErrCodeCredentialRequired = 140301
	// ErrCodeEntryLogFailed 入场审计写入失败错误 (审计失败则整次校验失败)
	ErrCodeEntryLogFailed = 140302
	// ErrCodeTokenTTLInvalid 门禁令牌有效期无效错误
	ErrCodeTokenTTLInvalid = 140303
	// ErrCodeDeductAmountInvalid 扣减数量无效错误
	ErrCodeDeductAmountInvalid = 140304
)

// 生物识别模块 (140400-140499)
const (
	// ErrCodeBiometricNotFound 生物识别引用不存在错误
	ErrCodeBiometricNotFound = 140401
)

// 并发/存储模块 (140500-140599)
const (
	// ErrCodeConcurrencyConflict 并发冲突错误 (锁/CAS 重试耗尽)
	ErrCodeConcurrencyConflict = 140501
)
