package httpapi

import (
	"context"
	"sync"
	"time"

	"meeting-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CreationGuard serializes meeting creation per user: while one create is in
// flight, a second one for the same user is refused. The UI normally
// prevents re-invocation through dialog state; the guard backs that liveness
// assumption server-side.
type CreationGuard interface {
	// Acquire returns ok=false when a create for the key is already in
	// flight. On ok, release must be called when the create completes.
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

const guardKeyPrefix = "meeting:create:"

// RedisCreationGuard is the shared-state implementation used when the API
// runs with more than one replica.
type RedisCreationGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCreationGuard(rdb *redis.Client, ttl time.Duration) *RedisCreationGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCreationGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisCreationGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	full := guardKeyPrefix + key
	ok, err := utils.AcquireCreationGuard(ctx, g.rdb, full, token, g.ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	release := func() {
		_ = utils.ReleaseCreationGuard(context.WithoutCancel(ctx), g.rdb, full, token)
	}
	return release, true, nil
}

// MemoryCreationGuard is a process-local guard for tests and local runs.
type MemoryCreationGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryCreationGuard() *MemoryCreationGuard {
	return &MemoryCreationGuard{held: make(map[string]struct{})}
}

func (g *MemoryCreationGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return nil, false, nil
	}
	g.held[key] = struct{}{}
	release := func() {
		g.mu.Lock()
		delete(g.held, key)
		g.mu.Unlock()
	}
	return release, true, nil
}
