package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie/entity"
)

type key struct{ tenant, student string }

type MemoryRepo struct {
	mu      sync.RWMutex
	rockies map[key]*entity.Rockie
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rockies: map[key]*entity.Rockie{}, now: time.Now}
}

var _ Repository = (*MemoryRepo)(nil)

func copyRockie(r *entity.Rockie) *entity.Rockie {
	c := *r
	c.Data = r.Data.Clone()
	return &c
}

func (m *MemoryRepo) Create(_ context.Context, r *entity.Rockie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{r.TenantID, r.StudentID}
	if _, ok := m.rockies[k]; ok {
		return fmt.Errorf("rockie for this student_id %w", common.ErrConflict)
	}
	m.rockies[k] = copyRockie(r)
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, tenantID, studentID string) (*entity.Rockie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rockies[key{tenantID, studentID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyRockie(r), nil
}

func (m *MemoryRepo) Update(_ context.Context, r *entity.Rockie, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rockies[key{r.TenantID, r.StudentID}]
	if !ok || cur.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	cur.Level = r.Level
	cur.Experience = r.Experience
	cur.Data = r.Data.Clone()
	cur.Version++
	cur.UpdatedAt = m.now().UTC()
	r.Version = cur.Version
	r.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, tenantID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{tenantID, studentID}
	if _, ok := m.rockies[k]; !ok {
		return common.ErrNotFound
	}
	delete(m.rockies, k)
	return nil
}
