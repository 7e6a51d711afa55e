package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles failed login attempts per key within a fixed window.
type LoginLimiter interface {
	// Allow reports whether another attempt may be made for key.
	Allow(ctx context.Context, key string) bool
	// Fail records a failed attempt for key.
	Fail(ctx context.Context, key string)
	// Reset forgets all failures for key.
	Reset(ctx context.Context, key string)
}

// sweepThreshold is the map size above which Fail drops expired windows.
const sweepThreshold = 1024

type attemptWindow struct {
	count int
	start time.Time
}

// MemoryLoginLimiter keeps attempt counters in process memory.
type MemoryLoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptWindow
	maxFails int
	window   time.Duration
	now      func() time.Time

	// sweepAt is the map size that triggers the next sweep.
	sweepAt   int
	lastSweep time.Time
}

// NewMemoryLoginLimiter creates a limiter allowing maxFails failures per window.
func NewMemoryLoginLimiter(maxFails int, window time.Duration) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		attempts: make(map[string]*attemptWindow),
		maxFails: maxFails,
		window:   window,
		now:      time.Now,
		sweepAt:  sweepThreshold,
	}
}

func (l *MemoryLoginLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.current(key)
	return w == nil || w.count < l.maxFails
}

func (l *MemoryLoginLimiter) Fail(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.current(key)
	if w == nil {
		if len(l.attempts) >= l.sweepAt || l.now().Sub(l.lastSweep) >= l.window {
			l.sweep()
		}
		w = &attemptWindow{start: l.now()}
		l.attempts[key] = w
	}
	w.count++
}

func (l *MemoryLoginLimiter) Reset(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

// current returns the live window for key, dropping an expired one.
// Callers hold l.mu.
func (l *MemoryLoginLimiter) current(key string) *attemptWindow {
	w, ok := l.attempts[key]
	if !ok {
		return nil
	}
	if l.now().Sub(w.start) >= l.window {
		delete(l.attempts, key)
		return nil
	}
	return w
}

// sweep drops every expired window. Fail sweeps at most once per window
// unless the map has doubled since the last sweep. Callers hold l.mu.
func (l *MemoryLoginLimiter) sweep() {
	now := l.now()
	l.lastSweep = now
	for key, w := range l.attempts {
		if now.Sub(w.start) >= l.window {
			delete(l.attempts, key)
		}
	}
	l.sweepAt = max(sweepThreshold, 2*len(l.attempts))
}

// RedisLoginLimiter keeps attempt counters in Redis so they are shared
// between server processes. Redis errors fail open.
type RedisLoginLimiter struct {
	client   *redis.Client
	maxFails int
	window   time.Duration
}

// NewRedisLoginLimiter creates a Redis-backed limiter.
func NewRedisLoginLimiter(client *redis.Client, maxFails int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{
		client:   client,
		maxFails: maxFails,
		window:   window,
	}
}

func (l *RedisLoginLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	count, err := l.client.Get(ctx, redisLimiterKey(key)).Int()
	if err != nil {
		return true
	}
	return count < l.maxFails
}

func (l *RedisLoginLimiter) Fail(ctx context.Context, key string) {
	if l == nil || l.client == nil {
		return
	}
	k := redisLimiterKey(key)
	_, _ = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, key string) {
	if l == nil || l.client == nil {
		return
	}
	_ = l.client.Del(ctx, redisLimiterKey(key)).Err()
}

func redisLimiterKey(key string) string {
	return "login_attempts:" + key
}
