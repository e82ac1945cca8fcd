package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/constants"
)

// Customer 会员档案 (本核心只消费门禁相关字段, 健康档案等由会员管理维护)
type Customer struct {
	ID       uint64
	FullName string
	Phone    string
	// Barcode 静态条码, 形如 GYM-123
	Barcode   string
	BranchID  uint64
	IsActive  bool
	CreatedAt time.Time
}

// FormatBarcode 会员静态条码, 建档时生成一次后不再变化
func FormatBarcode(customerID uint64) string {
	return fmt.Sprintf("%s%d", constants.BarcodePrefix, customerID)
}

// CustomerRepo 会员仓库接口
type CustomerRepo interface {
	GetCustomer(ctx context.Context, id uint64) (*Customer, error)
	GetCustomerByBarcode(ctx context.Context, barcode string) (*Customer, error)
}
