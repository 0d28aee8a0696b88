package inflight

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned while another AI request for the same session is in
// flight.
var ErrBusy = errors.New("an AI request is already in flight for this session")

// Guard allows one in-flight AI request per session. The returned release
// func is idempotent.
type Guard interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// MemoryGuard is a single-process guard. Entries expire after ttl so a
// crashed request cannot lock a session forever. mu makes the check and the
// write of both acquire and release one step.
type MemoryGuard struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &MemoryGuard{
		cache: cache.New(ttl, time.Minute),
		ttl:   ttl,
	}
}

func (g *MemoryGuard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	return g.acquire(ctx, sessionID, g.ttl)
}

func (g *MemoryGuard) acquire(ctx context.Context, sessionID string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token := uuid.NewString()

	g.mu.Lock()
	err := g.cache.Add(sessionID, token, ttl)
	g.mu.Unlock()
	if err != nil {
		return nil, ErrBusy
	}

	return sync.OnceFunc(func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if v, ok := g.cache.Get(sessionID); ok && v.(string) == token {
			g.cache.Delete(sessionID)
		}
	}), nil
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the lock between API replicas.
type RedisGuard struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(rdb redis.UniversalClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{rdb: rdb, prefix: "editor:inflight:", ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := g.prefix + sessionID
	token := uuid.NewString()

	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return sync.OnceFunc(func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.rdb, []string{key}, token).Err()
	}), nil
}
