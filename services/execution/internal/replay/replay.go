package replay

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard records request ids. Claim returns true the first time an id is
// seen within ttl and false for every repeat.
type Guard interface {
	Claim(ctx context.Context, requestID string, ttl time.Duration) (bool, error)
}

const defaultKeyPrefix = "portal:envelope:req:"

type RedisGuard struct {
	client redis.Cmdable
	prefix string
}

func NewRedisGuard(client redis.Cmdable) *RedisGuard {
	return &RedisGuard{client: client, prefix: defaultKeyPrefix}
}

func (g *RedisGuard) Claim(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+requestID, 1, ttl).Result()
}

const sweepEvery = 1024

type MemoryGuard struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	claims int
	now    func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: map[string]time.Time{}, now: time.Now}
}

func (g *MemoryGuard) Claim(_ context.Context, requestID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.claims++
	if g.claims%sweepEvery == 0 {
		for id, exp := range g.seen {
			if !now.Before(exp) {
				delete(g.seen, id)
			}
		}
	}
	if exp, ok := g.seen[requestID]; ok && now.Before(exp) {
		return false, nil
	}
	g.seen[requestID] = now.Add(ttl)
	return true, nil
}
