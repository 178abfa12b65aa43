package xretry

import (
	"context"
	"time"
)

// RetryPolicy 决定一次失败之后是否继续尝试。
type RetryPolicy interface {
	// MaxAttempts 返回尝试预算（包含首次尝试），0 表示不限。
	MaxAttempts() int

	// ShouldRetry 在第 attempt 次失败（从 1 开始）后调用。
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 计算下一次尝试前的等待时间。
type BackoffPolicy interface {
	// NextDelay 返回第 attempt 次失败（从 1 开始）之后的等待时间。
	NextDelay(attempt int) time.Duration
}

// FixedRetryPolicy 固定预算：第 maxAttempts 次失败后停止。
type FixedRetryPolicy struct {
	maxAttempts int
}

// NewFixedRetry 创建固定预算策略，maxAttempts 小于 1 时按 1 处理。
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FixedRetryPolicy{maxAttempts: maxAttempts}
}

func (p *FixedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if ctx.Err() != nil || attempt >= p.maxAttempts {
		return false
	}
	return IsRetryable(err)
}

// AlwaysRetryPolicy 不限次数，直到 ctx 取消或遇到不可重试错误。
type AlwaysRetryPolicy struct{}

// NewAlwaysRetry 创建不限次数的策略。
func NewAlwaysRetry() *AlwaysRetryPolicy {
	return &AlwaysRetryPolicy{}
}

func (p *AlwaysRetryPolicy) MaxAttempts() int {
	return 0
}

func (p *AlwaysRetryPolicy) ShouldRetry(ctx context.Context, _ int, err error) bool {
	return ctx.Err() == nil && IsRetryable(err)
}

// NeverRetryPolicy 首次失败即停止。
type NeverRetryPolicy struct{}

// NewNeverRetry 创建永不重试的策略。
func NewNeverRetry() *NeverRetryPolicy {
	return &NeverRetryPolicy{}
}

func (p *NeverRetryPolicy) MaxAttempts() int {
	return 1
}

func (p *NeverRetryPolicy) ShouldRetry(context.Context, int, error) bool {
	return false
}

var (
	_ RetryPolicy = (*FixedRetryPolicy)(nil)
	_ RetryPolicy = (*AlwaysRetryPolicy)(nil)
	_ RetryPolicy = (*NeverRetryPolicy)(nil)
)
