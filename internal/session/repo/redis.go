package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session/entity"
)

// DefaultRetention keeps a token key around after expiry so validation can
// still answer "Token expired" instead of "Token does not exist".
const DefaultRetention = 24 * time.Hour

// RedisRepo stores each token as a JSON value under prefix:token. Keys carry
// a TTL of the remaining lifetime plus the retention window.
type RedisRepo struct {
	rdb       redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

func NewRedisRepo(rdb redis.UniversalClient, prefix string) *RedisRepo {
	return &RedisRepo{rdb: rdb, prefix: prefix, retention: DefaultRetention, now: time.Now}
}

var _ Repository = (*RedisRepo)(nil)

func (r *RedisRepo) key(token string) string { return r.prefix + ":" + token }

func (r *RedisRepo) ttl(t *entity.AccessToken) time.Duration {
	d := t.ExpiresAt.Sub(r.now()) + r.retention
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (r *RedisRepo) Save(ctx context.Context, t *entity.AccessToken) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, r.key(t.Token), b, r.ttl(t)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return fmt.Errorf("token %w", common.ErrConflict)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, token string) (*entity.AccessToken, error) {
	b, err := r.rdb.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	var t entity.AccessToken
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &t, nil
}

// Revoke rewrites the value in place. XX keeps a concurrently expired key
// from being resurrected and KEEPTTL preserves the original lifetime.
func (r *RedisRepo) Revoke(ctx context.Context, token string, at time.Time) error {
	t, err := r.Get(ctx, token)
	if err != nil {
		return err
	}
	if t.RevokedAt != nil {
		return nil
	}
	at = at.UTC()
	t.RevokedAt = &at
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	err = r.rdb.SetArgs(ctx, r.key(token), b, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
