package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/plotwise/seedtrace"
)

// ScopeRepository stores each operator's active site/year/record-type
// defaults. Every store-touching request is scoped by these unless the
// request overrides them.
type ScopeRepository struct {
	rdb *redis.Client
}

func NewScopeRepository(rdb *redis.Client) *ScopeRepository {
	return &ScopeRepository{rdb: rdb}
}

func scopeKey(actor string) string {
	return "scope:" + actor
}

func (r *ScopeRepository) Get(ctx context.Context, actor string) (seedtrace.Scope, bool, error) {
	raw, err := r.rdb.Get(ctx, scopeKey(actor)).Result()
	if err == redis.Nil {
		return seedtrace.Scope{}, false, nil
	}
	if err != nil {
		return seedtrace.Scope{}, false, err
	}

	var scope seedtrace.Scope
	if err := json.Unmarshal([]byte(raw), &scope); err != nil {
		return seedtrace.Scope{}, false, err
	}
	return scope, true, nil
}

func (r *ScopeRepository) Set(ctx context.Context, actor string, scope seedtrace.Scope) error {
	b, err := json.Marshal(scope)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, scopeKey(actor), b, 0).Err()
}
