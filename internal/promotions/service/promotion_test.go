package service

import (
	"context"
	"sync"
	"testing"
	"time"

	promotionserrors "pedalo/internal/promotions/errors"
	"pedalo/pkg/config"
	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

// memoryPromotionRepo mimics the conditional-update semantics of the mongo
// repository under a single lock.
type memoryPromotionRepo struct {
	mu     sync.Mutex
	promos map[string]*model.Promotion
	codes  map[string]string
}

func newMemoryPromotionRepo() *memoryPromotionRepo {
	return &memoryPromotionRepo{
		promos: make(map[string]*model.Promotion),
		codes:  make(map[string]string),
	}
}

func (m *memoryPromotionRepo) Create(ctx context.Context, p *model.Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.codes[p.Code]; exists {
		return promotionserrors.ErrCodeTaken
	}
	if p.ID == "" {
		p.ID = "64f00000000000000000000" + string(rune('1'+len(m.promos)))
	}
	cp := *p
	m.promos[p.ID] = &cp
	m.codes[p.Code] = p.ID
	return nil
}

func (m *memoryPromotionRepo) FindByID(ctx context.Context, id string) (*model.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[id]
	if !ok {
		return nil, promotionserrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPromotionRepo) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	m.mu.Lock()
	id, ok := m.codes[code]
	m.mu.Unlock()
	if !ok {
		return nil, promotionserrors.ErrNotFound
	}
	return m.FindByID(ctx, id)
}

func (m *memoryPromotionRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Promotion, 0, len(m.promos))
	for _, p := range m.promos {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryPromotionRepo) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[id]
	if !ok {
		return promotionserrors.ErrNotFound
	}
	p.Active = false
	return nil
}

func (m *memoryPromotionRepo) IncrementUsage(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[id]
	if !ok {
		return false, promotionserrors.ErrNotFound
	}
	if p.UsageCount >= p.MaxUsageCount {
		return false, nil
	}
	p.UsageCount++
	return true, nil
}

func (m *memoryPromotionRepo) DecrementUsage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[id]
	if !ok {
		return promotionserrors.ErrNotFound
	}
	if p.UsageCount > 0 {
		p.UsageCount--
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT}),
	}
}

func validPromotion() *model.Promotion {
	now := time.Now().UTC()
	return &model.Promotion{
		Code:              "ride20",
		DiscountType:      model.DiscountPercentage,
		DiscountValue:     20,
		ValidFrom:         now.Add(-time.Hour),
		ValidTill:         now.Add(24 * time.Hour),
		MaxUsageCount:     50,
		UserMaxUsageCount: 1,
		Eligibility:       model.EligibilityAllUsers,
	}
}

func TestCreateUppercasesCodeAndActivates(t *testing.T) {
	repo := newMemoryPromotionRepo()
	svc := NewPromotionService(repo, testConfig())

	p := validPromotion()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}
	if p.Code != "RIDE20" {
		t.Errorf("code = %q, want RIDE20", p.Code)
	}
	if !p.Active {
		t.Error("new promotion should be active")
	}
	if p.UsageCount != 0 {
		t.Errorf("usage count = %d, want 0", p.UsageCount)
	}
}

func TestCreateDuplicateCodeConflicts(t *testing.T) {
	repo := newMemoryPromotionRepo()
	svc := NewPromotionService(repo, testConfig())

	if err := svc.Create(context.Background(), validPromotion()); err != nil {
		t.Fatalf("first Create() = %v", err)
	}
	err := svc.Create(context.Background(), validPromotion())
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("second Create() = %v, want conflict", err)
	}
}

func TestCreateRejectsOversizedPercentage(t *testing.T) {
	svc := NewPromotionService(newMemoryPromotionRepo(), testConfig())

	p := validPromotion()
	p.DiscountValue = 150
	err := svc.Create(context.Background(), p)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeInvalidInput {
		t.Fatalf("Create() = %v, want invalid input", err)
	}
}

func TestGetByCodeNotFound(t *testing.T) {
	svc := NewPromotionService(newMemoryPromotionRepo(), testConfig())

	_, err := svc.GetByCode(context.Background(), "NOPE")
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeNotFound {
		t.Fatalf("GetByCode() = %v, want not found", err)
	}
}

// Many concurrent uses must never push the counter past the cap, and
// exactly cap of them may succeed.
func TestCountUseNeverExceedsCap(t *testing.T) {
	repo := newMemoryPromotionRepo()
	svc := NewPromotionService(repo, testConfig())

	p := validPromotion()
	p.MaxUsageCount = 10
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() = %v", err)
	}

	const attempts = 100
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counted, err := svc.CountUse(context.Background(), p.ID)
			if err != nil {
				t.Errorf("CountUse() = %v", err)
				return
			}
			results <- counted
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for counted := range results {
		if counted {
			succeeded++
		}
	}
	if succeeded != 10 {
		t.Errorf("%d uses counted, want exactly 10", succeeded)
	}

	stored, err := svc.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID() = %v", err)
	}
	if stored.UsageCount != 10 {
		t.Errorf("usage count = %d, want 10", stored.UsageCount)
	}
}

func TestReleaseUseFloorsAtZero(t *testing.T) {
	repo := newMemoryPromotionRepo()
	svc := NewPromotionService(repo, testConfig())

	p := validPromotion()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.ReleaseUse(context.Background(), p.ID); err != nil {
			t.Fatalf("ReleaseUse() = %v", err)
		}
	}
	stored, _ := svc.GetByID(context.Background(), p.ID)
	if stored.UsageCount != 0 {
		t.Errorf("usage count = %d, want 0 after repeated releases", stored.UsageCount)
	}
}
