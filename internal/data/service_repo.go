package data

import (
	"context"
	"errors"

	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// serviceRepo 服务目录仓库实现 (只读)
type serviceRepo struct {
	data *Data
	log  *log.Helper
}

// NewServiceRepo 创建服务目录仓库
func NewServiceRepo(data *Data, logger log.Logger) biz.ServiceRepo {
	return &serviceRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// toBizService 转换为业务对象, 类目在这里归一化一次
// 业务层永远只见到封闭枚举, 不再解析原始字符串
func (r *serviceRepo) toBizService(m *model.Service) *biz.Service {
	category, ok := biz.NormalizeCategory(m.Category)
	if !ok {
		// 未知类目按 bundle 兜底处理 (推导结果为时间型), 记日志便于修数
		r.log.Warnf("Unknown service category %q for service %d, treating as bundle", m.Category, m.ID)
		category = biz.CategoryBundle
	}
	return &biz.Service{
		ID:               m.ID,
		Name:             m.Name,
		Category:         category,
		Description:      m.Description,
		Price:            m.Price,
		DurationDays:     m.DurationDays,
		ClassLimit:       m.ClassLimit,
		FreezeCountLimit: m.FreezeCountLimit,
		FreezeMaxDays:    m.FreezeMaxDays,
		FreezeIsPaid:     m.FreezeIsPaid,
		FreezeCost:       m.FreezeCost,
		IsActive:         m.IsActive,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// GetService 获取服务项目
func (r *serviceRepo) GetService(ctx context.Context, id uint64) (*biz.Service, error) {
	var m model.Service
	err := r.data.DB(ctx).Where("service_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get service %d: %v", id, err)
		return nil, err
	}
	return r.toBizService(&m), nil
}

// ListServices 获取全部服务项目
func (r *serviceRepo) ListServices(ctx context.Context) ([]*biz.Service, error) {
	var models []model.Service
	if err := r.data.DB(ctx).Order("service_id ASC").Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list services: %v", err)
		return nil, err
	}
	services := make([]*biz.Service, len(models))
	for i := range models {
		services[i] = r.toBizService(&models[i])
	}
	return services, nil
}
