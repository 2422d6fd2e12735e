package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	tokens map[string]entity.AccessToken
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tokens: map[string]entity.AccessToken{}}
}

var _ Repository = (*MemoryRepo)(nil)

func (r *MemoryRepo) Save(_ context.Context, t *entity.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.Token]; ok {
		return fmt.Errorf("token %w", common.ErrConflict)
	}
	r.tokens[t.Token] = *t
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, token string) (*entity.AccessToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *MemoryRepo) Revoke(_ context.Context, token string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return common.ErrNotFound
	}
	if t.RevokedAt == nil {
		at = at.UTC()
		t.RevokedAt = &at
		r.tokens[token] = t
	}
	return nil
}
