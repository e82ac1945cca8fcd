package biz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yamenmod9/gym-management-system/internal/conf"
	"github.com/yamenmod9/gym-management-system/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// 内存版仓库实现, 语义与 data 层一致 (含 CAS 扣减), 供用例测试使用

type fakeServiceRepo struct {
	services map[uint64]*Service
}

func (f *fakeServiceRepo) GetService(_ context.Context, id uint64) (*Service, error) {
	return f.services[id], nil
}

func (f *fakeServiceRepo) ListServices(_ context.Context) ([]*Service, error) {
	out := make([]*Service, 0, len(f.services))
	for _, s := range f.services {
		out = append(out, s)
	}
	return out, nil
}

type fakeCustomerRepo struct {
	customers map[uint64]*Customer
}

func (f *fakeCustomerRepo) GetCustomer(_ context.Context, id uint64) (*Customer, error) {
	return f.customers[id], nil
}

func (f *fakeCustomerRepo) GetCustomerByBarcode(_ context.Context, barcode string) (*Customer, error) {
	for _, c := range f.customers {
		if c.Barcode == barcode {
			return c, nil
		}
	}
	return nil, nil
}

type fakeSubscriptionRepo struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{nextID: 1, subs: map[uint64]*Subscription{}}
}

func (f *fakeSubscriptionRepo) clone(s *Subscription) *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	copyInt := func(p *int) *int {
		if p == nil {
			return nil
		}
		n := *p
		return &n
	}
	c.RemainingCoins = copyInt(s.RemainingCoins)
	c.TotalCoins = copyInt(s.TotalCoins)
	c.RemainingSessions = copyInt(s.RemainingSessions)
	c.TotalSessions = copyInt(s.TotalSessions)
	return &c
}

func (f *fakeSubscriptionRepo) GetSubscription(_ context.Context, id uint64) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clone(f.subs[id]), nil
}

func (f *fakeSubscriptionRepo) CreateSubscription(_ context.Context, sub *Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub.ID = f.nextID
	f.nextID++
	f.subs[sub.ID] = f.clone(sub)
	return nil
}

func (f *fakeSubscriptionRepo) SaveSubscription(_ context.Context, sub *Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.ID] = f.clone(sub)
	return nil
}

func (f *fakeSubscriptionRepo) GetLatestActiveByCustomer(_ context.Context, customerID uint64) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *Subscription
	for _, s := range f.subs {
		if s.CustomerID != customerID || s.Status != constants.StatusActive {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) ||
			(s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	return f.clone(latest), nil
}

func (f *fakeSubscriptionRepo) GetLatestExpiredByCustomer(_ context.Context, customerID uint64) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *Subscription
	for _, s := range f.subs {
		if s.CustomerID != customerID || s.Status != constants.StatusExpired {
			continue
		}
		if latest == nil || s.EndDate.After(latest.EndDate) {
			latest = s
		}
	}
	return f.clone(latest), nil
}

func (f *fakeSubscriptionRepo) HasOtherActive(_ context.Context, customerID, exceptID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.CustomerID == customerID && s.ID != exceptID && s.Status == constants.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubscriptionRepo) DeductCounter(_ context.Context, id uint64, entitlementType string, amount int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return 0, false, nil
	}
	var counter *int
	switch entitlementType {
	case constants.EntitlementCoins:
		counter = s.RemainingCoins
	case constants.EntitlementSessions, constants.EntitlementTraining:
		counter = s.RemainingSessions
	default:
		return -1, true, nil
	}
	if s.Status != constants.StatusActive || counter == nil || *counter <= 0 {
		return 0, false, nil
	}
	n := *counter - amount
	if n < 0 {
		n = 0
	}
	*counter = n
	return n, true, nil
}

func (f *fakeSubscriptionRepo) CreditCounter(_ context.Context, id uint64, entitlementType string, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return 0, errors.New("subscription not found")
	}
	var counter, total *int
	switch entitlementType {
	case constants.EntitlementCoins:
		counter, total = s.RemainingCoins, s.TotalCoins
	case constants.EntitlementSessions, constants.EntitlementTraining:
		counter, total = s.RemainingSessions, s.TotalSessions
	default:
		return -1, nil
	}
	if counter == nil {
		return 0, nil
	}
	n := *counter + amount
	if total != nil && n > *total {
		n = *total
	}
	*counter = n
	return n, nil
}

func (f *fakeSubscriptionRepo) SweepExpired(_ context.Context, today time.Time) (int64, []uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	var customerIDs []uint64
	for _, s := range f.subs {
		if s.Status == constants.StatusActive && s.EndDate.Before(today) {
			s.Status = constants.StatusExpired
			count++
			customerIDs = append(customerIDs, s.CustomerID)
		}
	}
	return count, customerIDs, nil
}

type fakeFreezeRepo struct {
	mu      sync.Mutex
	nextID  uint64
	freezes []*FreezeHistory
}

func (f *fakeFreezeRepo) AddFreeze(_ context.Context, fh *FreezeHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	fh.ID = f.nextID
	c := *fh
	f.freezes = append(f.freezes, &c)
	return nil
}

func (f *fakeFreezeRepo) GetActiveFreeze(_ context.Context, subscriptionID uint64) (*FreezeHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.freezes) - 1; i >= 0; i-- {
		if f.freezes[i].SubscriptionID == subscriptionID && f.freezes[i].IsActive {
			c := *f.freezes[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeFreezeRepo) CloseActiveFreeze(_ context.Context, subscriptionID uint64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fh := range f.freezes {
		if fh.SubscriptionID == subscriptionID && fh.IsActive {
			fh.IsActive = false
			t := now
			fh.UnfrozenAt = &t
		}
	}
	return nil
}

func (f *fakeFreezeRepo) GetLastFreeze(_ context.Context, subscriptionID uint64) (*FreezeHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.freezes) - 1; i >= 0; i-- {
		if f.freezes[i].SubscriptionID == subscriptionID {
			c := *f.freezes[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeFreezeRepo) ListFreezes(_ context.Context, subscriptionID uint64) ([]*FreezeHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*FreezeHistory
	for _, fh := range f.freezes {
		if fh.SubscriptionID == subscriptionID {
			c := *fh
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeEntryLogRepo struct {
	mu     sync.Mutex
	nextID uint64
	logs   []*EntryLog
	// failWrites 模拟审计存储故障
	failWrites bool
}

func (f *fakeEntryLogRepo) AddEntryLog(_ context.Context, e *EntryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("entry log storage unavailable")
	}
	f.nextID++
	e.ID = f.nextID
	c := *e
	f.logs = append(f.logs, &c)
	return nil
}

func (f *fakeEntryLogRepo) ListByCustomer(_ context.Context, customerID uint64, page, pageSize int) ([]*EntryLog, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*EntryLog
	for _, e := range f.logs {
		if e.CustomerID != nil && *e.CustomerID == customerID {
			c := *e
			all = append(all, &c)
		}
	}
	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeEntryLogRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logs)
}

func (f *fakeEntryLogRepo) last() *EntryLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.logs) == 0 {
		return nil
	}
	c := *f.logs[len(f.logs)-1]
	return &c
}

type fakeBiometricRepo struct {
	mu   sync.Mutex
	refs map[uint64]*BiometricReference
}

func (f *fakeBiometricRepo) GetByHash(_ context.Context, hash string) (*BiometricReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refs {
		if r.ReferenceHash == hash {
			c := *r
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeBiometricRepo) ListByCustomer(_ context.Context, customerID uint64) ([]*BiometricReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*BiometricReference
	for _, r := range f.refs {
		if r.CustomerID == customerID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeBiometricRepo) SetActiveForCustomer(_ context.Context, customerID uint64, active bool, reason string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.refs {
		if r.CustomerID != customerID {
			continue
		}
		r.IsActive = active
		if active {
			r.DeactivatedAt = nil
			r.DeactivationReason = ""
		} else {
			t := now
			r.DeactivatedAt = &t
			r.DeactivationReason = reason
		}
	}
	return nil
}

func (f *fakeBiometricRepo) TouchLastUsed(_ context.Context, id uint64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.refs[id]; ok {
		t := now
		r.LastUsed = &t
	}
	return nil
}

// fakeTx 直通事务: 单元测试里仓库本身就是原子的
type fakeTx struct{}

func (fakeTx) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fixture 组装一套互相咬合的内存仓库和用例
type fixture struct {
	svcRepo    *fakeServiceRepo
	custRepo   *fakeCustomerRepo
	subRepo    *fakeSubscriptionRepo
	freezeRepo *fakeFreezeRepo
	entryRepo  *fakeEntryLogRepo
	bioRepo    *fakeBiometricRepo
	tokens     *AccessTokenIssuer
	subUc      *SubscriptionUsecase
	entryUc    *EntryUsecase
	bioUc      *BiometricUsecase
}

func newFixture() *fixture {
	f := &fixture{
		svcRepo:    &fakeServiceRepo{services: map[uint64]*Service{}},
		custRepo:   &fakeCustomerRepo{customers: map[uint64]*Customer{}},
		subRepo:    newFakeSubscriptionRepo(),
		freezeRepo: &fakeFreezeRepo{},
		entryRepo:  &fakeEntryLogRepo{},
		bioRepo:    &fakeBiometricRepo{refs: map[uint64]*BiometricReference{}},
	}
	f.tokens = NewAccessTokenIssuer(&conf.Bootstrap{Gym: &conf.Gym{TokenSecret: "test-secret"}})

	logger := log.DefaultLogger
	f.subUc = NewSubscriptionUsecase(f.svcRepo, f.custRepo, f.subRepo, f.freezeRepo, f.bioRepo, fakeTx{}, nil, logger)
	f.entryUc = NewEntryUsecase(f.custRepo, f.subRepo, f.svcRepo, f.freezeRepo, f.entryRepo, f.bioRepo, f.tokens, fakeTx{}, nil, logger)
	f.bioUc = NewBiometricUsecase(f.bioRepo, f.subRepo, f.custRepo, logger)
	return f
}

func intPtr(n int) *int { return &n }

func (f *fixture) addCustomer(id uint64, active bool) *Customer {
	c := &Customer{
		ID:       id,
		FullName: "Test Customer",
		Barcode:  FormatBarcode(id),
		BranchID: 1,
		IsActive: active,
	}
	f.custRepo.customers[id] = c
	return c
}

func (f *fixture) addService(id uint64, category ServiceCategory, durationDays int, classLimit *int) *Service {
	s := &Service{
		ID:               id,
		Name:             "Test Service",
		Category:         category,
		DurationDays:     durationDays,
		ClassLimit:       classLimit,
		FreezeCountLimit: 3,
		FreezeMaxDays:    30,
		IsActive:         true,
	}
	f.svcRepo.services[id] = s
	return s
}
