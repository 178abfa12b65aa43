package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// 默认配置。
const (
	DefaultThreshold   = 5
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRequests = 1
)

// Breaker 熔断器。
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

type settings struct {
	trip          TripPolicy
	isSuccessful  func(error) bool
	timeout       time.Duration
	interval      time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)
}

// Option 配置 Breaker。
type Option func(*settings)

// WithTripPolicy 设置熔断策略，默认连续失败 5 次。
func WithTripPolicy(p TripPolicy) Option {
	return func(s *settings) {
		if p != nil {
			s.trip = p
		}
	}
}

// WithSuccessPolicy 自定义成功判定，默认 err == nil 为成功。
func WithSuccessPolicy(fn func(error) bool) Option {
	return func(s *settings) {
		s.isSuccessful = fn
	}
}

// WithTimeout 设置 Open 到 HalfOpen 的等待时间，默认 60s。
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithInterval 设置 Closed 状态下清零计数的周期，默认 0 表示不清零。
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		s.interval = max(d, 0)
	}
}

// WithMaxRequests 设置 HalfOpen 状态允许的探测请求数，默认 1。
func WithMaxRequests(n uint32) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调。
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *settings) {
		s.onStateChange = fn
	}
}

// NewBreaker 创建名为 name 的熔断器。
func NewBreaker(name string, opts ...Option) *Breaker {
	s := settings{
		trip:        NewConsecutiveFailures(DefaultThreshold),
		timeout:     DefaultTimeout,
		maxRequests: DefaultMaxRequests,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	st := gobreaker.Settings{
		Name:          name,
		MaxRequests:   s.maxRequests,
		Interval:      s.interval,
		Timeout:       s.timeout,
		ReadyToTrip:   s.trip.ReadyToTrip,
		IsSuccessful:  s.isSuccessful,
		OnStateChange: s.onStateChange,
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[any](st)}
}

// Do 在熔断器保护下执行 fn。
// ctx 已取消时直接返回 ctx.Err()，不计入统计。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return wrapBreakerError(err, b.name)
}

// Execute 是 Do 的带返回值版本。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var result T
	if fn == nil {
		return result, ErrNilFunc
	}
	err := b.Do(ctx, func() error {
		var err error
		result, err = fn()
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Name 返回熔断器名称。
func (b *Breaker) Name() string {
	return b.name
}

// State 返回当前状态。
func (b *Breaker) State() State {
	return b.cb.State()
}

// Counts 返回当前统计计数。
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}
