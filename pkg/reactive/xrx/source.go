package xrx

import (
	"sync"
	"sync/atomic"
)

// Teardown 订阅结束时的清理动作。nil 表示无需清理。
type Teardown func()

// Teardowns 将多个清理动作组合为一个。
// 组合后的动作按注册的逆序执行，且只执行一次；nil 元素被跳过。
func Teardowns(ts ...Teardown) Teardown {
	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(ts) - 1; i >= 0; i-- {
				if ts[i] != nil {
					ts[i]()
				}
			}
		})
	}
}

// Source 异步值的生产者描述。
//
// Source 是无状态的值类型，只持有"给定 Subscriber，开始生产并返回 Teardown"
// 这一能力。每次 Subscribe 都重新执行生产函数（单播），不同订阅之间不共享状态。
// 零值 Source 在订阅时立即完成。
type Source[T any] struct {
	subscribe func(Subscriber[T]) Teardown
}

// Create 由生产函数创建 Source。
//
// fn 在 Subscribe 中被同步调用，可以同步发射，也可以启动异步工作后立即返回。
// fn 返回的 Teardown 在订阅结束时执行一次，必须主动取消仍在进行的异步工作。
// fn 为 nil 时返回以 ErrNilFunc 终止的 Source。
func Create[T any](fn func(sub Subscriber[T]) Teardown) Source[T] {
	if fn == nil {
		return Throw[T](ErrNilFunc)
	}
	return Source[T]{subscribe: fn}
}

// Subscribe 订阅 Source 并返回订阅句柄。
//
// sub 被包装为串行化守卫：保证终止后无通知、通知互斥且有序。
// sub 为 nil 时所有通知被忽略。生产函数中的 panic 被恢复并以
// *ProducerError 送达 OnError。
func (s Source[T]) Subscribe(sub Subscriber[T]) *Subscription {
	subscription := newSubscription()
	g := newGuard(sub, subscription)

	if s.subscribe == nil {
		g.OnComplete()
		return subscription
	}

	subscription.setTeardown(s.run(g))
	return subscription
}

// SubscribeFunc 以三个可选回调订阅，等价于 Subscribe(Funcs[T]{...})。
func (s Source[T]) SubscribeFunc(onNext func(T), onError func(error), onComplete func()) *Subscription {
	return s.Subscribe(Funcs[T]{Next: onNext, Error: onError, Complete: onComplete})
}

func (s Source[T]) run(g *guard[T]) (td Teardown) {
	defer func() {
		if r := recover(); r != nil {
			td = nil
			g.OnError(NewProducerError("create", panicError(r)))
		}
	}()
	return s.subscribe(g)
}

// Subscription 消费者持有的订阅句柄。
//
// 所有方法并发安全；nil 接收者的方法均为空操作。
type Subscription struct {
	closed atomic.Bool

	mu       sync.Mutex
	teardown Teardown
	disposed bool // Teardown 已执行或已请求执行
	err      error
	done     chan struct{}
	doneOnce sync.Once
}

func newSubscription() *Subscription {
	return &Subscription{done: make(chan struct{})}
}

// Unsubscribe 取消订阅并执行 Teardown。
//
// 幂等：只有第一次调用（且订阅尚未终止时）会执行 Teardown。
// 返回后不会再开始新的通知；但另一个 goroutine 上已经通过关闭检查的那一次
// OnNext 仍可能在返回之后到达下游。需要严格截止的消费者应在回调中检查 Closed。
// Unsubscribe 不等待进行中的投递，因此可以在回调内部安全调用。
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.dispose()
	s.finish()
}

// Closed 报告订阅是否已结束（取消或终止）。
func (s *Subscription) Closed() bool {
	if s == nil {
		return true
	}
	return s.closed.Load()
}

// Done 返回订阅结束时关闭的 channel。
func (s *Subscription) Done() <-chan struct{} {
	if s == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Err 返回终止错误。正常完成、被取消或仍在进行时返回 nil。
func (s *Subscription) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// terminate 将订阅标记为终止并执行 Teardown。
// 返回 false 表示订阅已被取消或已终止，终止通知应被丢弃。
func (s *Subscription) terminate(err error) bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.dispose()
	return true
}

// finish 关闭 done channel。
func (s *Subscription) finish() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// dispose 执行 Teardown（至多一次）。
// 生产函数尚未返回时只做标记，由 setTeardown 在拿到 Teardown 后立即执行。
func (s *Subscription) dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	td := s.teardown
	s.teardown = nil
	s.mu.Unlock()

	if td != nil {
		td()
	}
}

func (s *Subscription) setTeardown(td Teardown) {
	s.mu.Lock()
	if !s.disposed {
		s.teardown = td
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if td != nil {
		td()
	}
}

// upstream 持有对上游订阅的引用，解决"上游在 Subscribe 返回前就需要被取消"的竞争。
//
// set 与 dispose 可按任意顺序、在任意 goroutine 调用，上游订阅最终都会被取消恰好一次。
type upstream struct {
	mu       sync.Mutex
	sub      *Subscription
	disposed bool
}

func (u *upstream) set(sub *Subscription) {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	u.sub = sub
	u.mu.Unlock()
}

func (u *upstream) dispose() {
	u.mu.Lock()
	if u.disposed {
		u.mu.Unlock()
		return
	}
	u.disposed = true
	sub := u.sub
	u.sub = nil
	u.mu.Unlock()

	sub.Unsubscribe()
}

func (u *upstream) isDisposed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.disposed
}
