package xrx

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// Delay 将每个 OnNext 推迟 d 后转发，Error/Complete 立即转发。
//
// 等待由定时器完成，不阻塞发射方。同一 Delay 内的值按上游顺序送出：
// 待发送值按到期时间排队，任一时刻最多只有一个定时器在途。
// Teardown 停止在途定时器并丢弃队列，已取消的定时器即使触发也不会产生通知。
// d <= 0 时值仍经由定时器异步送出。
func (s Source[T]) Delay(d time.Duration, opts ...Option) Source[T] {
	return Delay(s, d, opts...)
}

// Delay 包级函数形式，见 Source.Delay。
func Delay[T any](src Source[T], d time.Duration, opts ...Option) Source[T] {
	if d < 0 {
		d = 0
	}
	o := applyOptions(opts)
	return Create(func(down Subscriber[T]) Teardown {
		dl := &delayer[T]{
			down:  down,
			clock: o.clock,
			delay: d,
			drain: o.drainOnComplete,
		}
		ref := &upstream{}
		ref.set(src.Subscribe(Funcs[T]{
			Next:     dl.next,
			Error:    dl.fail,
			Complete: dl.complete,
		}))
		return func() {
			ref.dispose()
			dl.stop()
		}
	})
}

type pending[T any] struct {
	due   time.Time
	value T
}

type delayer[T any] struct {
	down  Subscriber[T]
	clock clock.Clock
	delay time.Duration
	drain bool

	mu        sync.Mutex
	queue     []pending[T]
	timer     clock.Timer
	flushing  bool // 定时器在途或正在投递
	completed bool // 上游已完成，等待排空后转发
	stopped   bool
}

func (d *delayer[T]) next(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.queue = append(d.queue, pending[T]{due: d.clock.Now().Add(d.delay), value: v})
	if !d.flushing {
		d.flushing = true
		d.timer = d.clock.AfterFunc(d.delay, d.flush)
	}
}

func (d *delayer[T]) fail(err error) {
	d.down.OnError(err)
}

func (d *delayer[T]) complete() {
	if !d.drain {
		d.down.OnComplete()
		return
	}
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.flushing || len(d.queue) > 0 {
		d.completed = true
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.down.OnComplete()
}

// flush 由定时器回调触发：送出已到期的值，再为队首安排下一个定时器。
func (d *delayer[T]) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	now := d.clock.Now()
	n := 0
	for n < len(d.queue) && !d.queue[n].due.After(now) {
		n++
	}
	ready := make([]T, n)
	for i := range n {
		ready[i] = d.queue[i].value
	}
	clear(d.queue[:n])
	d.queue = d.queue[n:]
	d.mu.Unlock()

	for _, v := range ready {
		d.down.OnNext(v)
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if len(d.queue) > 0 {
		wait := max(d.queue[0].due.Sub(d.clock.Now()), 0)
		d.timer = d.clock.AfterFunc(wait, d.flush)
		d.mu.Unlock()
		return
	}
	d.flushing = false
	d.timer = nil
	completed := d.completed
	d.mu.Unlock()

	if completed {
		d.down.OnComplete()
	}
}

func (d *delayer[T]) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.queue = nil
}
