package data

import (
	"context"

	"github.com/yamenmod9/gym-management-system/internal/biz"
	"github.com/yamenmod9/gym-management-system/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// entryLogRepo 入场审计仓库实现, 只追加
type entryLogRepo struct {
	data *Data
	log  *log.Helper
}

// NewEntryLogRepo 创建入场审计仓库
func NewEntryLogRepo(data *Data, logger log.Logger) biz.EntryLogRepo {
	return &entryLogRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func toBizEntryLog(m *model.EntryLog) *biz.EntryLog {
	return &biz.EntryLog{
		ID:             m.ID,
		ExternalID:     m.ExternalID,
		CustomerID:     m.CustomerID,
		SubscriptionID: m.SubscriptionID,
		BranchID:       m.BranchID,
		EntryType:      m.EntryType,
		Approved:       m.Approved,
		ReasonCode:     m.ReasonCode,
		AmountDeducted: m.AmountDeducted,
		ProcessedBy:    m.ProcessedBy,
		OccurredAt:     m.OccurredAt,
		CreatedAt:      m.CreatedAt,
	}
}

// AddEntryLog 写入一条审计记录
func (r *entryLogRepo) AddEntryLog(ctx context.Context, e *biz.EntryLog) error {
	m := &model.EntryLog{
		ExternalID:     e.ExternalID,
		CustomerID:     e.CustomerID,
		SubscriptionID: e.SubscriptionID,
		BranchID:       e.BranchID,
		EntryType:      e.EntryType,
		Approved:       e.Approved,
		ReasonCode:     e.ReasonCode,
		AmountDeducted: e.AmountDeducted,
		ProcessedBy:    e.ProcessedBy,
		OccurredAt:     e.OccurredAt,
		CreatedAt:      e.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to add entry log (branch %d, type %s): %v", e.BranchID, e.EntryType, err)
		return err
	}
	e.ID = m.ID
	return nil
}

// ListByCustomer 按会员分页查询入场历史, 时间倒序
func (r *entryLogRepo) ListByCustomer(ctx context.Context, customerID uint64, page, pageSize int) ([]*biz.EntryLog, int, error) {
	db := r.data.DB(ctx).Model(&model.EntryLog{}).Where("customer_id = ?", customerID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count entry logs for customer %d: %v", customerID, err)
		return nil, 0, err
	}

	var models []model.EntryLog
	err := db.
		Order("occurred_at DESC, entry_log_id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		r.log.Errorf("Failed to list entry logs for customer %d: %v", customerID, err)
		return nil, 0, err
	}

	logs := make([]*biz.EntryLog, len(models))
	for i := range models {
		logs[i] = toBizEntryLog(&models[i])
	}
	return logs, int(total), nil
}
