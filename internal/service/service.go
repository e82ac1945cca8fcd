package service

import (
	"time"

	"github.com/yamenmod9/gym-management-system/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewSubscriptionService,
	NewEntryService,
)

const dateLayout = "2006-01-02"

// SubscriptionDTO 订阅对外表示
type SubscriptionDTO struct {
	SubscriptionID    uint64 `json:"subscription_id"`
	CustomerID        uint64 `json:"customer_id"`
	ServiceID         uint64 `json:"service_id"`
	BranchID          uint64 `json:"branch_id"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	Status            string `json:"status"`
	EntitlementType   string `json:"entitlement_type"`
	RemainingCoins    *int   `json:"remaining_coins,omitempty"`
	TotalCoins        *int   `json:"total_coins,omitempty"`
	RemainingSessions *int   `json:"remaining_sessions,omitempty"`
	TotalSessions     *int   `json:"total_sessions,omitempty"`
	FreezeCount       int    `json:"freeze_count"`
	TotalFrozenDays   int    `json:"total_frozen_days"`
	StopReason        string `json:"stop_reason,omitempty"`
}

func toSubscriptionDTO(s *biz.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	return &SubscriptionDTO{
		SubscriptionID:    s.ID,
		CustomerID:        s.CustomerID,
		ServiceID:         s.ServiceID,
		BranchID:          s.BranchID,
		StartDate:         s.StartDate.Format(dateLayout),
		EndDate:           s.EndDate.Format(dateLayout),
		Status:            s.Status,
		EntitlementType:   s.EntitlementType,
		RemainingCoins:    s.RemainingCoins,
		TotalCoins:        s.TotalCoins,
		RemainingSessions: s.RemainingSessions,
		TotalSessions:     s.TotalSessions,
		FreezeCount:       s.FreezeCount,
		TotalFrozenDays:   s.TotalFrozenDays,
		StopReason:        s.StopReason,
	}
}

// parseDate 解析 YYYY-MM-DD 日期, 空串返回 nil
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
