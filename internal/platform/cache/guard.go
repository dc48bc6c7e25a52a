package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseTimeout = 2 * time.Second

// Guard admits at most one holder per key. Acquire returns ok=false when
// the key is already held; the caller should drop the duplicate action.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// MemoryGuard is an in-process Guard for a single server or tests.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryGuard creates an empty in-process guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, false, nil
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, true, nil
}

// Held reports whether key is currently held.
func (g *MemoryGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}

// releaseScript deletes the key only if it still carries our token, so an
// expired holder cannot release a newer one.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares in-flight state between server instances, covering the
// same learner acting from two tabs. Keys expire after ttl so a crashed
// holder cannot block the action forever.
type RedisGuard struct {
	cache *Cache
	ttl   time.Duration
}

// NewRedisGuard creates a guard storing keys under "inflight".
func NewRedisGuard(c *Cache, ttl time.Duration) *RedisGuard {
	return &RedisGuard{cache: c, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	full := g.cache.Key("inflight", key)
	token := uuid.NewString()

	ok, err := g.cache.client.SetNX(ctx, full, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire guard %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, g.cache.client, []string{full}, token).Err(); err != nil {
				slog.Warn("failed to release guard", "key", key, "error", err)
			}
		})
	}, true, nil
}
