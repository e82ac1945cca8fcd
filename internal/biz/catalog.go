package biz

import (
	"context"
	"strings"
	"time"
)

// ServiceCategory 服务类目 (封闭枚举, 在数据加载时归一化一次, 业务层不再解析原始字符串)
type ServiceCategory string

const (
	CategoryGym                ServiceCategory = "gym"
	CategorySwimmingEducation  ServiceCategory = "swimming_education"
	CategorySwimmingRecreation ServiceCategory = "swimming_recreation"
	CategoryKarate             ServiceCategory = "karate"
	CategoryBundle             ServiceCategory = "bundle"
)

// NormalizeCategory 归一化历史数据中的类目写法
// 兼容大小写混写 ("GYM"/"gym") 和带枚举前缀的形式 ("ServiceType.GYM")
func NormalizeCategory(raw string) (ServiceCategory, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	switch ServiceCategory(s) {
	case CategoryGym, CategorySwimmingEducation, CategorySwimmingRecreation, CategoryKarate, CategoryBundle:
		return ServiceCategory(s), true
	}
	return "", false
}

// Service 服务项目模板 (本核心只读, 定价/上下架由目录管理维护)
type Service struct {
	ID           uint64
	Name         string
	Category     ServiceCategory
	Description  string
	Price        float64
	DurationDays int
	// ClassLimit 课时上限, 为空表示该服务不按课时计量
	ClassLimit *int
	// 冻结规则
	FreezeCountLimit int
	FreezeMaxDays    int
	FreezeIsPaid     bool
	FreezeCost       float64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasClassLimit 该服务是否配置了课时上限
func (s *Service) HasClassLimit() bool {
	return s.ClassLimit != nil && *s.ClassLimit > 0
}

// ServiceRepo 服务目录仓库接口 (只读)
type ServiceRepo interface {
	GetService(ctx context.Context, id uint64) (*Service, error)
	ListServices(ctx context.Context) ([]*Service, error)
}
