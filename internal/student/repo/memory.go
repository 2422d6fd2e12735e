package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student/entity"
)

type key struct{ tenant, id string }

// MemoryRepo keeps students in process memory. Used for local runs and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[key]*entity.Student
	byEmail map[key]string
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    map[key]*entity.Student{},
		byEmail: map[key]string{},
		now:     time.Now,
	}
}

var _ Repository = (*MemoryRepo)(nil)

func copyStudent(s *entity.Student) *entity.Student {
	c := *s
	c.Data = s.Data.Clone()
	return &c
}

func (r *MemoryRepo) Create(_ context.Context, s *entity.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[key{s.TenantID, s.StudentID}]; ok {
		return fmt.Errorf("student with this student_id %w", common.ErrConflict)
	}
	if _, ok := r.byEmail[key{s.TenantID, s.StudentEmail}]; ok {
		return fmt.Errorf("student with this student_email %w", common.ErrConflict)
	}
	r.byID[key{s.TenantID, s.StudentID}] = copyStudent(s)
	r.byEmail[key{s.TenantID, s.StudentEmail}] = s.StudentID
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, tenantID, studentID string) (*entity.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[key{tenantID, studentID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyStudent(s), nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, tenantID, email string) (*entity.Student, error) {
	r.mu.RLock()
	id, ok := r.byEmail[key{tenantID, email}]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.GetByID(ctx, tenantID, id)
}

func (r *MemoryRepo) Exists(_ context.Context, tenantID, studentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[key{tenantID, studentID}]
	return ok, nil
}

func (r *MemoryRepo) Update(_ context.Context, s *entity.Student, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[key{s.TenantID, s.StudentID}]
	if !ok || cur.Version != expectedVersion {
		return common.ErrVersionConflict
	}
	cur.Data = s.Data.Clone()
	cur.Version++
	cur.UpdatedAt = r.now().UTC()
	s.Version = cur.Version
	s.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *MemoryRepo) UpdatePassword(_ context.Context, tenantID, studentID, hash, algo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[key{tenantID, studentID}]
	if !ok {
		return common.ErrNotFound
	}
	cur.PasswordHash = hash
	cur.PasswordAlgo = algo
	cur.Version++
	cur.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, tenantID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[key{tenantID, studentID}]
	if !ok {
		return common.ErrNotFound
	}
	delete(r.byEmail, key{tenantID, cur.StudentEmail})
	delete(r.byID, key{tenantID, studentID})
	return nil
}
