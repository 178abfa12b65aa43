package xretry

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// FixedBackoff 每次等待相同时间。
type FixedBackoff struct {
	delay time.Duration
}

// NewFixedBackoff 创建固定间隔退避，负数按 0 处理。
func NewFixedBackoff(delay time.Duration) *FixedBackoff {
	return &FixedBackoff{delay: max(delay, 0)}
}

func (b *FixedBackoff) NextDelay(int) time.Duration {
	return b.delay
}

// NoBackoff 立即重试。
type NoBackoff struct{}

// NewNoBackoff 创建零间隔退避。
func NewNoBackoff() *NoBackoff {
	return &NoBackoff{}
}

func (b *NoBackoff) NextDelay(int) time.Duration {
	return 0
}

// ExponentialBackoff 指数退避：
// delay = min(initial * multiplier^(attempt-1) * (1 ± jitter), maxDelay)。
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       float64
}

// ExponentialBackoffOption 指数退避配置项。
type ExponentialBackoffOption func(*ExponentialBackoff)

// WithInitialDelay 设置首次等待时间，d <= 0 被忽略。
func WithInitialDelay(d time.Duration) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.initialDelay = d
		}
	}
}

// WithMaxDelay 设置等待上限，d <= 0 被忽略。
func WithMaxDelay(d time.Duration) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if d > 0 {
			b.maxDelay = d
		}
	}
}

// WithMultiplier 设置增长因子，小于 1 被忽略。
func WithMultiplier(m float64) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		if m >= 1 {
			b.multiplier = m
		}
	}
}

// WithJitter 设置抖动比例，截断到 [0, 1]。
func WithJitter(j float64) ExponentialBackoffOption {
	return func(b *ExponentialBackoff) {
		b.jitter = min(max(j, 0), 1)
	}
}

// NewExponentialBackoff 创建指数退避。
// 默认：initial 100ms，max 30s，multiplier 2，jitter 0.1。
func NewExponentialBackoff(opts ...ExponentialBackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.maxDelay = max(b.maxDelay, b.initialDelay)
	return b
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	attempt = max(attempt, 1)
	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	if b.jitter > 0 {
		delay *= 1 + (randomFloat64()*2-1)*b.jitter
	}
	// Pow 溢出为 +Inf 时乘以 0 得到 NaN，NaN 与任何值比较均为 false
	if math.IsNaN(delay) || delay < 0 || delay >= float64(b.maxDelay) {
		return b.maxDelay
	}
	return time.Duration(delay)
}

var (
	_ BackoffPolicy = (*FixedBackoff)(nil)
	_ BackoffPolicy = (*NoBackoff)(nil)
	_ BackoffPolicy = (*ExponentialBackoff)(nil)
)

// randomFloat64 返回 [0, 1) 内的随机数，crypto/rand 失败时返回 0（无抖动）。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) / (1 << 53)
}
