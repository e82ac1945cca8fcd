package auth

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
)

// 定义 context key
type contextKey string

const (
	// StaffIDKey 操作员工ID的context key
	StaffIDKey contextKey = "staff_id"
	// CustomerIDKey 会员ID的context key (客户端自助请求)
	CustomerIDKey contextKey = "customer_id"
)

// GetStaffIDFromContext 从context中获取员工ID
func GetStaffIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(StaffIDKey).(uint64)
	return id, ok
}

// GetCustomerIDFromContext 从context中获取会员ID
func GetCustomerIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(CustomerIDKey).(uint64)
	return id, ok
}

// CheckCustomerOwnership 校验会员只能操作自己的资源, 员工不受限
// 鉴权在上游网关完成; 网关未注入身份的内网调用不做归属校验
func CheckCustomerOwnership(ctx context.Context, customerID uint64) error {
	if _, ok := GetStaffIDFromContext(ctx); ok {
		return nil
	}
	if currentID, ok := GetCustomerIDFromContext(ctx); ok && currentID != customerID {
		return errors.Forbidden("FORBIDDEN", "permission denied: you can only access your own resources")
	}
	return nil
}
