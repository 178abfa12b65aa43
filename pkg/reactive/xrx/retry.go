package xrx

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/omeyang/xrx/pkg/resilience/xretry"
)

// 默认重试参数：最多 4 次尝试，每次间隔 1s。
const (
	DefaultRetryAttempts = 4
	DefaultRetryDelay    = 1000 * time.Millisecond
)

// RetryState 单个订阅的重试状态，每次顶层订阅时重新创建。
type RetryState struct {
	// AttemptsMade 已观察到的错误次数。
	AttemptsMade int
	// AttemptBudget 尝试预算，0 表示不限。
	AttemptBudget int
	// Delay 下一次重新订阅前的等待时间。
	Delay time.Duration
}

// Exhausted 报告预算是否已耗尽。
func (s RetryState) Exhausted() bool {
	return s.AttemptBudget > 0 && s.AttemptsMade >= s.AttemptBudget
}

// RetryStrategy 将上游错误转换为"延迟后重新订阅"或"终止"的决策。
//
// Policy 决定是否重试（xretry.FixedRetryPolicy 即尝试预算语义），
// Backoff 决定下一次等待时长。零值字段使用默认值。
type RetryStrategy struct {
	// Policy 重试策略，默认 xretry.NewFixedRetry(DefaultRetryAttempts)。
	Policy xretry.RetryPolicy
	// Backoff 退避策略，默认 xretry.NewFixedBackoff(DefaultRetryDelay)。
	Backoff xretry.BackoffPolicy
	// OnRetry 每次决定重试时调用（在等待开始前），可为 nil。
	OnRetry func(state RetryState, err error)
}

// NewRetryStrategy 创建固定预算、固定间隔的重试策略。
// attempts 为总尝试次数（包含首次订阅），小于 1 时按 1 处理。
func NewRetryStrategy(attempts int, delay time.Duration) RetryStrategy {
	return RetryStrategy{
		Policy:  xretry.NewFixedRetry(attempts),
		Backoff: xretry.NewFixedBackoff(delay),
	}
}

// DefaultRetryStrategy 返回默认重试策略（4 次尝试，间隔 1s）。
func DefaultRetryStrategy() RetryStrategy {
	return NewRetryStrategy(DefaultRetryAttempts, DefaultRetryDelay)
}

func (s RetryStrategy) normalize() RetryStrategy {
	if s.Policy == nil {
		s.Policy = xretry.NewFixedRetry(DefaultRetryAttempts)
	}
	if s.Backoff == nil {
		s.Backoff = xretry.NewFixedBackoff(DefaultRetryDelay)
	}
	return s
}

type retryDecision uint8

const (
	decisionRetry retryDecision = iota
	decisionExhausted
	decisionPropagate
)

// decide 记录一次错误并给出决策，state 被原地更新。
//
//   - 不可重试的错误（TransformError、xretry.PermanentError、Unrecoverable）原样传播
//   - 预算未耗尽：等待 Backoff.NextDelay(attempt) 后重新订阅
//   - 预算耗尽：以 *RetryExhaustedError 终止
func (s RetryStrategy) decide(ctx context.Context, state *RetryState, err error) retryDecision {
	state.AttemptsMade++
	state.Delay = 0

	if !xretry.IsRecoverable(err) || !xretry.IsRetryable(err) {
		return decisionPropagate
	}
	if s.Policy.ShouldRetry(ctx, state.AttemptsMade, err) {
		state.Delay = max(s.Backoff.NextDelay(state.AttemptsMade), 0)
		return decisionRetry
	}
	if state.Exhausted() {
		return decisionExhausted
	}
	return decisionPropagate
}

// Retry 上游报错时按 strategy 延迟后重新订阅上游，预算耗尽时以
// *RetryExhaustedError 终止。
//
// 每次重新订阅都会重新执行上游的生产函数（例如重新发起网络请求）。
// Next 与 Complete 直接透传，不重置计数：计数按订阅生命周期累计。
// Teardown 停止等待中的定时器并取消当前这一次上游订阅。
func (s Source[T]) Retry(strategy RetryStrategy, opts ...Option) Source[T] {
	return Retry(s, strategy, opts...)
}

// Retry 包级函数形式，见 Source.Retry。
func Retry[T any](src Source[T], strategy RetryStrategy, opts ...Option) Source[T] {
	strategy = strategy.normalize()
	o := applyOptions(opts)
	return Create(func(down Subscriber[T]) Teardown {
		ctx, cancel := context.WithCancel(context.Background())
		r := &retrier[T]{
			src:      src,
			down:     down,
			strategy: strategy,
			clock:    o.clock,
			ctx:      ctx,
			cancel:   cancel,
			state:    RetryState{AttemptBudget: strategy.Policy.MaxAttempts()},
		}
		r.subscribe()
		return r.stop
	})
}

type retrier[T any] struct {
	src      Source[T]
	down     Subscriber[T]
	strategy RetryStrategy
	clock    clock.Clock
	ctx      context.Context
	cancel   context.CancelFunc

	mu          sync.Mutex
	state       RetryState
	gen         uint64 // 当前尝试的代号，过期尝试的通知被忽略
	current     *Subscription
	timer       clock.Timer
	subscribing bool
	again       bool
	stopped     bool
}

// subscribe 开始一次新的尝试。
// 在尝试内部同步触发的重新订阅只做标记，由外层循环接续，避免递归加深调用栈。
func (r *retrier[T]) subscribe() {
	r.mu.Lock()
	if r.subscribing {
		r.again = true
		r.mu.Unlock()
		return
	}
	r.subscribing = true
	for {
		if r.stopped {
			break
		}
		r.gen++
		gen := r.gen
		r.timer = nil
		r.again = false
		r.mu.Unlock()

		sub := r.src.Subscribe(r.attempt(gen))

		r.mu.Lock()
		if !r.stopped && r.gen == gen {
			r.current = sub
		} else {
			r.mu.Unlock()
			sub.Unsubscribe()
			r.mu.Lock()
		}
		if !r.again {
			break
		}
	}
	r.subscribing = false
	r.mu.Unlock()
}

func (r *retrier[T]) attempt(gen uint64) Subscriber[T] {
	return Funcs[T]{
		Next: func(v T) {
			if r.live(gen) {
				r.down.OnNext(v)
			}
		},
		Error: func(err error) {
			r.fail(gen, err)
		},
		Complete: func() {
			if r.live(gen) {
				r.down.OnComplete()
			}
		},
	}
}

func (r *retrier[T]) live(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped && r.gen == gen
}

func (r *retrier[T]) fail(gen uint64, err error) {
	r.mu.Lock()
	if r.stopped || r.gen != gen {
		r.mu.Unlock()
		return
	}
	decision := r.strategy.decide(r.ctx, &r.state, err)
	state := r.state
	if decision != decisionRetry {
		r.mu.Unlock()
		if decision == decisionExhausted {
			err = &RetryExhaustedError{Attempts: state.AttemptsMade, Err: err}
		}
		r.down.OnError(err)
		return
	}

	if r.strategy.OnRetry != nil {
		r.mu.Unlock()
		r.strategy.OnRetry(state, err)
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
	}

	if state.Delay <= 0 {
		r.mu.Unlock()
		r.subscribe()
		return
	}
	r.timer = r.clock.AfterFunc(state.Delay, r.subscribe)
	r.mu.Unlock()
}

func (r *retrier[T]) stop() {
	r.mu.Lock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	cur := r.current
	r.current = nil
	r.mu.Unlock()

	r.cancel()
	cur.Unsubscribe()
}
