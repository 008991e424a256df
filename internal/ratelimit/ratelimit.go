package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// Local keeps one token bucket per key in process memory.
type Local struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
}

func NewLocal(rps float64, burst int) *Local {
	return &Local{
		clients: make(map[string]*client),
		r:       rate.Limit(rps),
		burst:   burst,
	}
}

// Cleanup drops keys idle for longer than ttl every interval until ctx ends.
func (l *Local) Cleanup(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(ttl)
		}
	}
}

func (l *Local) evict(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		if time.Since(c.seen) > ttl {
			delete(l.clients, key)
		}
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	return l.get(key).Allow(), nil
}

func (l *Local) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.clients[key]; ok {
		c.seen = time.Now()
		return c.lim
	}
	lim := rate.NewLimiter(l.r, l.burst)
	l.clients[key] = &client{lim: lim, seen: time.Now()}
	return lim
}

// Redis counts requests per key in fixed windows shared by every replica.
type Redis struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedis(rdb *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, limit: int64(limit), window: window, prefix: "ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(r.window)
	k := fmt.Sprintf("%s%s:%d", r.prefix, key, bucket)

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= r.limit, nil
}
