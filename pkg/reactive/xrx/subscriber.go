package xrx

import (
	"fmt"
	"sync"
)

// Subscriber 接收 Source 通知的消费端。
//
// 一个订阅的生命周期内：零个或多个 OnNext，随后至多一个 OnError 或 OnComplete。
type Subscriber[T any] interface {
	// OnNext 接收一个值
	OnNext(value T)

	// OnError 接收终止错误
	OnError(err error)

	// OnComplete 接收正常完成通知
	OnComplete()
}

// Funcs 以三个可选函数组成的 Subscriber 实现，nil 字段视为空操作。
type Funcs[T any] struct {
	Next     func(value T)
	Error    func(err error)
	Complete func()
}

// OnNext 实现 Subscriber。
func (f Funcs[T]) OnNext(value T) {
	if f.Next != nil {
		f.Next(value)
	}
}

// OnError 实现 Subscriber。
func (f Funcs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// OnComplete 实现 Subscriber。
func (f Funcs[T]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

var _ Subscriber[int] = Funcs[int]{}

// Stopper 由能够报告"已不再接收通知"的 Subscriber 实现。
type Stopper interface {
	Stopped() bool
}

// Stopped 报告 sub 是否已不再接收通知，未实现 Stopper 时返回 false。
//
// 同步发射大量值的生产者可在循环中检查它并提前退出，而不是逐个发射被丢弃的值。
func Stopped[T any](sub Subscriber[T]) bool {
	if s, ok := sub.(Stopper); ok {
		return s.Stopped()
	}
	return false
}

type kind uint8

const (
	kindNext kind = iota
	kindError
	kindComplete
)

type notification[T any] struct {
	kind  kind
	value T
	err   error
}

// guard 串行化守卫，Subscribe 为每个订阅创建一个。
//
// 采用"队列 + 单发射者"方式：同一时刻只有一个 goroutine 向下游投递，
// 其他并发（或重入）发射进入队列，由当前发射者按序排空。
// 收到第一个终止通知后丢弃后续所有通知；订阅关闭后丢弃队列。
// 下游回调 panic 时订阅以 ErrPanic 终止，panic 不会传播回生产者。
type guard[T any] struct {
	down Subscriber[T]
	sub  *Subscription

	mu       sync.Mutex
	emitting bool
	terminal bool
	queue    []notification[T]
}

func newGuard[T any](down Subscriber[T], sub *Subscription) *guard[T] {
	if down == nil {
		down = Funcs[T]{}
	}
	return &guard[T]{down: down, sub: sub}
}

func (g *guard[T]) OnNext(value T) {
	g.push(notification[T]{kind: kindNext, value: value})
}

func (g *guard[T]) OnError(err error) {
	g.push(notification[T]{kind: kindError, err: err})
}

func (g *guard[T]) OnComplete() {
	g.push(notification[T]{kind: kindComplete})
}

// Stopped 实现 Stopper：已终止、订阅已关闭或下游报告停止时返回 true。
func (g *guard[T]) Stopped() bool {
	g.mu.Lock()
	terminal := g.terminal
	g.mu.Unlock()
	return terminal || g.sub.Closed() || Stopped(g.down)
}

func (g *guard[T]) push(n notification[T]) {
	g.mu.Lock()
	if g.terminal || g.sub.Closed() {
		g.mu.Unlock()
		return
	}
	if n.kind != kindNext {
		g.terminal = true
	}
	if g.emitting {
		g.queue = append(g.queue, n)
		g.mu.Unlock()
		return
	}
	g.emitting = true
	g.mu.Unlock()
	defer g.recoverDownstream()

	for {
		if !g.deliver(n) {
			g.mu.Lock()
			g.queue = nil
			g.mu.Unlock()
			return
		}

		g.mu.Lock()
		if len(g.queue) == 0 {
			g.emitting = false
			g.mu.Unlock()
			return
		}
		n = g.queue[0]
		g.queue[0] = notification[T]{}
		g.queue = g.queue[1:]
		g.mu.Unlock()
	}
}

// recoverDownstream 处理下游回调中的 panic：清空队列并复位发射状态，
// 以 ErrPanic 终止订阅（执行 Teardown、关闭 Done），再尝试通知下游 OnError。
func (g *guard[T]) recoverDownstream() {
	r := recover()
	if r == nil {
		return
	}

	g.mu.Lock()
	g.emitting = false
	g.terminal = true
	g.queue = nil
	g.mu.Unlock()

	err := fmt.Errorf("subscriber: %w", panicError(r))
	if g.sub.terminate(err) {
		func() {
			defer func() { _ = recover() }()
			g.down.OnError(err)
		}()
	}
	g.sub.finish()
}

// deliver 投递一个通知，返回 false 表示订阅已结束、应停止排空。
func (g *guard[T]) deliver(n notification[T]) bool {
	switch n.kind {
	case kindNext:
		// 检查与投递之间并发的 Unsubscribe 不会撤回这一次 OnNext。
		if g.sub.Closed() {
			return false
		}
		g.down.OnNext(n.value)
		return true

	case kindError:
		if !g.sub.terminate(n.err) {
			return false
		}
		g.down.OnError(n.err)
		g.sub.finish()
		return false

	default:
		if !g.sub.terminate(nil) {
			return false
		}
		g.down.OnComplete()
		g.sub.finish()
		return false
	}
}
