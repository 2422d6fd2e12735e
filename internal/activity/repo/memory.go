package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
)

type key struct{ tenant, student, activity string }

type MemoryRepo struct {
	mu         sync.RWMutex
	activities map[key]*entity.Activity
	now        func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{activities: map[key]*entity.Activity{}, now: time.Now}
}

var _ Repository = (*MemoryRepo)(nil)

func copyActivity(a *entity.Activity) *entity.Activity {
	c := *a
	c.Data = a.Data.Clone()
	return &c
}

func (m *MemoryRepo) Create(_ context.Context, a *entity.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{a.TenantID, a.StudentID, a.ActivityID}
	if _, ok := m.activities[k]; ok {
		return fmt.Errorf("activity with this activity_id %w", common.ErrConflict)
	}
	m.activities[k] = copyActivity(a)
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, tenantID, studentID, activityID string) (*entity.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.activities[key{tenantID, studentID, activityID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyActivity(a), nil
}

func (m *MemoryRepo) List(_ context.Context, q entity.ListQuery) ([]*entity.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entity.Activity
	for k, a := range m.activities {
		if k.tenant != q.TenantID || k.student != q.StudentID || k.activity <= q.After {
			continue
		}
		if q.ActivityType != "" && a.ActivityType != q.ActivityType {
			continue
		}
		out = append(out, copyActivity(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID < out[j].ActivityID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryRepo) Update(_ context.Context, a *entity.Activity, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.activities[key{a.TenantID, a.StudentID, a.ActivityID}]
	if !ok || cur.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	cur.ActivityType = a.ActivityType
	cur.Data = a.Data.Clone()
	cur.Version++
	cur.UpdatedAt = m.now().UTC()
	a.Version = cur.Version
	a.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, tenantID, studentID, activityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{tenantID, studentID, activityID}
	if _, ok := m.activities[k]; !ok {
		return common.ErrNotFound
	}
	delete(m.activities, k)
	return nil
}
