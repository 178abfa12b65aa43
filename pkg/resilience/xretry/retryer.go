package xretry

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Retryer 同步重试执行器，组合 RetryPolicy 与 BackoffPolicy，底层由
// retry-go 驱动。零值可用：默认 FixedRetry(3) 加 ExponentialBackoff。
type Retryer struct {
	policy  RetryPolicy
	backoff BackoffPolicy
	onRetry func(attempt int, err error)
}

// RetryerOption Retryer 配置项。
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试策略，nil 被忽略。
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略，nil 被忽略。
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoff = p
		}
	}
}

// WithOnRetry 设置每次重试前的回调，attempt 从 1 开始。nil 被忽略。
func WithOnRetry(f func(attempt int, err error)) RetryerOption {
	return func(r *Retryer) {
		if f != nil {
			r.onRetry = f
		}
	}
}

// NewRetryer 创建重试执行器。
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetryPolicy 返回生效的重试策略。
func (r *Retryer) RetryPolicy() RetryPolicy {
	if r == nil || r.policy == nil {
		return NewFixedRetry(3)
	}
	return r.policy
}

// BackoffPolicy 返回生效的退避策略。
func (r *Retryer) BackoffPolicy() BackoffPolicy {
	if r == nil || r.backoff == nil {
		return NewExponentialBackoff()
	}
	return r.backoff
}

// Do 执行 fn，失败时按策略重试，返回最后一次的错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil {
		return ErrNilRetryer
	}
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	return retry.New(r.options(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

// DoWithResult Do 的带返回值版本。
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilRetryer
	}
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	return retry.NewWithData[T](r.options(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) options(ctx context.Context) []retry.Option {
	policy := r.RetryPolicy()
	backoff := r.BackoffPolicy()

	opts := make([]retry.Option, 0, 6)
	opts = append(opts, retry.Context(ctx))
	if n := policy.MaxAttempts(); n > 0 {
		opts = append(opts, retry.Attempts(uint(n)))
	} else {
		opts = append(opts, retry.UntilSucceeded())
	}

	// Attempts 是硬上限，ShouldRetry 可提前终止。
	var failures atomic.Int64
	opts = append(opts, retry.RetryIf(func(err error) bool {
		n := int(failures.Add(1))
		if !IsRecoverable(err) {
			return false
		}
		return policy.ShouldRetry(ctx, n, err)
	}))
	// retry-go v5 的 DelayType 计数从 1 开始，OnRetry 从 0 开始
	opts = append(opts, retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
		return backoff.NextDelay(uintToInt(n))
	}))
	if r.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(uintToInt(n)+1, err)
		}))
	}
	return append(opts, retry.LastErrorOnly(true))
}

func uintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
