package biz

import (
	"github.com/yamenmod9/gym-management-system/internal/constants"
)

// 权益账本: 订阅的可消耗余量只通过这里的语义变化
// 扣减地板为零, 时间型订阅不扣减; 回补只走续费或人工补偿, 闸机永远只减不加

// DeductInMemory 对内存中的订阅对象做地板为零的扣减, 返回新余量
// 持久化路径使用 SubscriptionRepo.DeductCounter 的条件更新;
// 这里是同一语义的纯函数版本, 供快照修正和测试使用
func DeductInMemory(sub *Subscription, amount int) int {
	if amount <= 0 {
		return sub.Remaining()
	}
	switch sub.EntitlementType {
	case constants.EntitlementCoins:
		if sub.RemainingCoins == nil {
			return 0
		}
		n := *sub.RemainingCoins - amount
		if n < 0 {
			n = 0
		}
		*sub.RemainingCoins = n
		return n
	case constants.EntitlementSessions, constants.EntitlementTraining:
		if sub.RemainingSessions == nil {
			return 0
		}
		n := *sub.RemainingSessions - amount
		if n < 0 {
			n = 0
		}
		*sub.RemainingSessions = n
		return n
	default:
		// time_based 无计数器, 扣减是空操作
		return -1
	}
}

// applyDeduction 将仓库返回的扣减后余量同步到快照
func applyDeduction(sub *Subscription, remaining int) {
	switch sub.EntitlementType {
	case constants.EntitlementCoins:
		if sub.RemainingCoins != nil {
			*sub.RemainingCoins = remaining
		}
	case constants.EntitlementSessions, constants.EntitlementTraining:
		if sub.RemainingSessions != nil {
			*sub.RemainingSessions = remaining
		}
	}
}
