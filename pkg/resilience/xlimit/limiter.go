package xlimit

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xrx/pkg/observability/xlog"
)

// Limiter 对每个键独立限流，可并发使用。
type Limiter struct {
	backend Backend
	rate    Rate
	opts    options
}

// New 使用自定义后端创建 Limiter。
func New(backend Backend, rate Rate, opts ...Option) (*Limiter, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	r, err := rate.normalize()
	if err != nil {
		return nil, err
	}
	return &Limiter{backend: backend, rate: r, opts: applyOptions(opts)}, nil
}

// NewLocal 创建进程内限流器。
func NewLocal(rate Rate, opts ...Option) (*Limiter, error) {
	o := applyOptions(opts)
	return New(newLocalBackend(o.clock), rate, opts...)
}

// NewRedis 创建基于 Redis 的分布式限流器，不接管 rdb 的生命周期。
func NewRedis(rdb redis.UniversalClient, rate Rate, opts ...Option) (*Limiter, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	return New(newRedisBackend(rdb), rate, opts...)
}

// Rate 返回生效的配额。
func (l *Limiter) Rate() Rate {
	return l.rate
}

// Allow 为 key 消耗一个令牌。
//
// 主后端出错且配置了降级后端时，记录 Warn 日志并由降级后端计算。
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrEmptyKey
	}
	full := l.opts.prefix + key
	res, err := l.backend.Allow(ctx, full, l.rate)
	if err == nil || l.opts.fallback == nil || ctx.Err() != nil {
		return res, err
	}

	l.opts.logger.Warn(ctx, "rate limit backend failed, using fallback",
		slog.String("backend", l.backend.Type()),
		slog.String("fallback", l.opts.fallback.Type()),
		xlog.Err(err))
	return l.opts.fallback.Allow(ctx, full, l.rate)
}

// Check 与 Allow 相同，但被限流时返回 *LimitError。
func (l *Limiter) Check(ctx context.Context, key string) error {
	res, err := l.Allow(ctx, key)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return &LimitError{Key: key, Limit: l.rate.Limit, RetryAfter: res.RetryAfter}
	}
	return nil
}

// Reset 清除 key 的计数。
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return l.backend.Reset(ctx, l.opts.prefix+key)
}
