package data

import (
	"context"
	"errors"

	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// customerRepo 会员仓库实现
type customerRepo struct {
	data *Data
	log  *log.Helper
}

// NewCustomerRepo 创建会员仓库
func NewCustomerRepo(data *Data, logger log.Logger) biz.CustomerRepo {
	return &customerRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func toBizCustomer(m *model.Customer) *biz.Customer {
	return &biz.Customer{
		ID:        m.ID,
		FullName:  m.FullName,
		Phone:     m.Phone,
		Barcode:   m.Barcode,
		BranchID:  m.BranchID,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

// GetCustomer 获取会员
func (r *customerRepo) GetCustomer(ctx context.Context, id uint64) (*biz.Customer, error) {
	var m model.Customer
	err := r.data.DB(ctx).Where("customer_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get customer %d: %v", id, err)
		return nil, err
	}
	return toBizCustomer(&m), nil
}

// GetCustomerByBarcode 按静态条码定位会员
func (r *customerRepo) GetCustomerByBarcode(ctx context.Context, barcode string) (*biz.Customer, error) {
	var m model.Customer
	err := r.data.DB(ctx).Where("barcode = ?", barcode).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get customer by barcode %s: %v", barcode, err)
		return nil, err
	}
	return toBizCustomer(&m), nil
}
