package xlimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
)

// Rate 限流配额：每 Period 最多 Limit 次请求，Burst 为突发容量。
// Burst <= 0 时取 Limit。
type Rate struct {
	Limit  int
	Burst  int
	Period time.Duration
}

// PerSecond 每秒 n 次。
func PerSecond(n int) Rate {
	return Rate{Limit: n, Burst: n, Period: time.Second}
}

// PerMinute 每分钟 n 次。
func PerMinute(n int) Rate {
	return Rate{Limit: n, Burst: n, Period: time.Minute}
}

func (r Rate) normalize() (Rate, error) {
	if r.Limit <= 0 || r.Period <= 0 {
		return r, fmt.Errorf("%w: limit=%d period=%s", ErrInvalidRate, r.Limit, r.Period)
	}
	if r.Burst <= 0 {
		r.Burst = r.Limit
	}
	return r, nil
}

// Result 一次检查的结果。
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Backend 执行令牌计算，实现必须并发安全。
type Backend interface {
	// Allow 为 key 消耗一个令牌。
	Allow(ctx context.Context, key string, rate Rate) (Result, error)
	// Reset 清除 key 的计数。
	Reset(ctx context.Context, key string) error
	// Type 后端类型，用于日志。
	Type() string
}

// localBackend 进程内令牌桶。
type localBackend struct {
	clock   clock.Clock
	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

func newLocalBackend(clk clock.Clock) *localBackend {
	return &localBackend{clock: clk, buckets: make(map[string]*tokenBucket)}
}

func (b *localBackend) Type() string { return "local" }

func (b *localBackend) Allow(ctx context.Context, key string, rate Rate) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	tb, ok := b.buckets[key]
	if !ok {
		tb = &tokenBucket{tokens: float64(rate.Burst), last: now}
		b.buckets[key] = tb
	}
	return tb.take(now, rate), nil
}

func (b *localBackend) Reset(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.buckets, key)
	b.mu.Unlock()
	return nil
}

// tokenBucket 按 Limit/Period 的速率补充令牌，上限为 Burst。
type tokenBucket struct {
	tokens float64
	last   time.Time
}

func (tb *tokenBucket) take(now time.Time, rate Rate) Result {
	perSecond := float64(rate.Limit) / rate.Period.Seconds()
	if elapsed := now.Sub(tb.last); elapsed > 0 {
		tb.tokens = min(tb.tokens+perSecond*elapsed.Seconds(), float64(rate.Burst))
		tb.last = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return Result{Allowed: true, Remaining: int(tb.tokens)}
	}
	deficit := 1 - tb.tokens
	return Result{RetryAfter: time.Duration(deficit / perSecond * float64(time.Second))}
}

// redisBackend 基于 redis_rate 的分布式后端。
type redisBackend struct {
	limiter *redis_rate.Limiter
}

func newRedisBackend(rdb redis.UniversalClient) *redisBackend {
	return &redisBackend{limiter: redis_rate.NewLimiter(rdb)}
}

func (b *redisBackend) Type() string { return "redis" }

func (b *redisBackend) Allow(ctx context.Context, key string, rate Rate) (Result, error) {
	res, err := b.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   rate.Limit,
		Burst:  rate.Burst,
		Period: rate.Period,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: max(res.RetryAfter, 0),
	}, nil
}

func (b *redisBackend) Reset(ctx context.Context, key string) error {
	return b.limiter.Reset(ctx, key)
}

var (
	_ Backend = (*localBackend)(nil)
	_ Backend = (*redisBackend)(nil)
)
