package constants

import "time"

// 订阅状态
const (
	StatusActive  = "active"
	StatusFrozen  = "frozen"
	StatusStopped = "stopped"
	StatusExpired = "expired"
)

// 权益类型 (订阅的消耗计量方式)
const (
	EntitlementCoins     = "coins"
	EntitlementSessions  = "sessions"
	EntitlementTraining  = "training"
	EntitlementTimeBased = "time_based"
)

// 入场凭证类型
const (
	EntryTypeToken     = "token"
	EntryTypeBarcode   = "barcode"
	EntryTypeBiometric = "biometric"
	EntryTypeManual    = "manual"
)

// 入场拒绝原因码 (对外稳定契约, UI 依赖这些做本地化展示, 不要改)
const (
	ReasonInvalidCredential = "INVALID_CREDENTIAL"
	ReasonExpiredToken      = "EXPIRED_TOKEN"
	ReasonCustomerInactive  = "CUSTOMER_INACTIVE"
	ReasonNoSubscription    = "NO_SUBSCRIPTION"
	ReasonFrozen            = "FROZEN"
	ReasonStopped           = "STOPPED"
	ReasonExpired           = "EXPIRED"
	ReasonBranchMismatch    = "BRANCH_MISMATCH"
	ReasonNoCoins           = "NO_COINS"
	ReasonNoSessions        = "NO_SESSIONS"
)

// 权益兜底数量 (服务未配置 class_limit 且调用方未指定时使用)
const (
	// DefaultCoinSeed 金币类订阅默认发放数量
	DefaultCoinSeed = 50
	// DefaultSessionSeed 课时/私教类订阅默认发放数量
	DefaultSessionSeed = 10
	// DefaultDeductAmount 单次入场默认扣减数量
	DefaultDeductAmount = 1
)

// 分布式锁相关常量
const (
	// EntryLockExpiration 入场校验锁过期时间
	EntryLockExpiration = 8 * time.Second
	// EntryLockTries 入场校验锁重试次数 (有界重试, 超过即返回冲突错误)
	EntryLockTries = 8
	// LifecycleLockExpiration 生命周期变更锁过期时间
	LifecycleLockExpiration = 10 * time.Second
	// LifecycleLockTries 生命周期变更锁重试次数
	LifecycleLockTries = 4
	// SweepLockExpiration 过期清扫任务锁过期时间
	SweepLockExpiration = 5 * time.Minute
)

// EntryLockKey 入场/生命周期互斥锁 key 前缀, 粒度为单个订阅
const EntryLockKey = "entry_lock:subscription:%d"

// SweepLockKey 过期清扫任务锁 key (清扫本身幂等, 锁只是避免重复扫描)
const SweepLockKey = "sweep_lock:expired_subscriptions"

// 门禁令牌相关常量
const (
	// TokenPurposeGateAccess 门禁令牌用途标识
	TokenPurposeGateAccess = "gate_access"
	// DefaultTokenTTL 门禁令牌默认有效期
	DefaultTokenTTL = 5 * time.Minute
	// MaxTokenTTL 门禁令牌最长有效期
	MaxTokenTTL = 24 * time.Hour
)

// BarcodePrefix 会员静态条码前缀, 形如 GYM-123
const BarcodePrefix = "GYM-"

// 指纹/人脸引用停用原因
const (
	DeactivateReasonFrozen  = "Subscription frozen"
	DeactivateReasonStopped = "Subscription stopped"
	DeactivateReasonExpired = "Subscription expired"
)

// 分页相关常量
const (
	// DefaultPageSize 默认分页大小
	DefaultPageSize = 10
	// MaxPageSize 最大分页大小
	MaxPageSize = 100
)
