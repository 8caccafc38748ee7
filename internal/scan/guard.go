package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Guard keeps a scanner to one scan at a time. Acquire reports false when a
// scan by the same scanner is still running.
type Guard interface {
	Acquire(ctx context.Context, scannerID string) (release func(), ok bool, err error)
}

const inflightKeyPrefix = "scan_inflight:"

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard holds a short-lived SETNX key per scanner, shared by every API replica.
type RedisGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{Client: client, TTL: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, scannerID string) (func(), bool, error) {
	key := inflightKeyPrefix + scannerID
	token := uuid.New().String()

	ok, err := g.Client.SetNX(ctx, key, token, g.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to take scan guard: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// an expired key may already belong to a newer scan
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, g.Client, []string{key}, token)
	}
	return release, true, nil
}

// LocalGuard is the single-process guard used when Redis is not configured.
type LocalGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{inflight: make(map[string]struct{})}
}

func (g *LocalGuard) Acquire(_ context.Context, scannerID string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inflight[scannerID]; busy {
		return nil, false, nil
	}
	g.inflight[scannerID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inflight, scannerID)
			g.mu.Unlock()
		})
	}, true, nil
}
