// Package xrxtest 提供测试 xrx 流水线的辅助工具。
package xrxtest

import (
	"sync"
	"time"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
)

// Kind 记录的通知类型。
type Kind string

const (
	KindNext     Kind = "next"
	KindError    Kind = "error"
	KindComplete Kind = "complete"
)

// Event 一条记录的通知。
type Event[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// Recorder 记录收到的全部通知，实现 xrx.Subscriber。
//
// Recorder 在并发调用下安全；它不做任何过滤，因此也能用来断言
// "终止之后没有通知"。
type Recorder[T any] struct {
	mu     sync.Mutex
	events []Event[T]
	done   chan struct{}
	once   sync.Once
}

var _ xrx.Subscriber[int] = (*Recorder[int])(nil)

// NewRecorder 创建 Recorder。
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{done: make(chan struct{})}
}

func (r *Recorder[T]) OnNext(v T) {
	r.add(Event[T]{Kind: KindNext, Value: v})
}

func (r *Recorder[T]) OnError(err error) {
	r.add(Event[T]{Kind: KindError, Err: err})
	r.once.Do(func() { close(r.done) })
}

func (r *Recorder[T]) OnComplete() {
	r.add(Event[T]{Kind: KindComplete})
	r.once.Do(func() { close(r.done) })
}

func (r *Recorder[T]) add(e Event[T]) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events 返回记录的快照。
func (r *Recorder[T]) Events() []Event[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]Event[T], len(r.events))
	copy(cp, r.events)
	return cp
}

// Values 返回按到达顺序记录的全部值。
func (r *Recorder[T]) Values() []T {
	var out []T
	for _, e := range r.Events() {
		if e.Kind == KindNext {
			out = append(out, e.Value)
		}
	}
	return out
}

// Err 返回第一个终止错误。
func (r *Recorder[T]) Err() error {
	for _, e := range r.Events() {
		if e.Kind == KindError {
			return e.Err
		}
	}
	return nil
}

// Completed 报告是否收到过 OnComplete。
func (r *Recorder[T]) Completed() bool {
	for _, e := range r.Events() {
		if e.Kind == KindComplete {
			return true
		}
	}
	return false
}

// Terminals 返回收到的终止通知个数。
func (r *Recorder[T]) Terminals() int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind != KindNext {
			n++
		}
	}
	return n
}

// Done 在收到第一个终止通知时关闭。
func (r *Recorder[T]) Done() <-chan struct{} {
	return r.done
}

// Wait 等待终止通知，超时返回 false。
func (r *Recorder[T]) Wait(timeout time.Duration) bool {
	select {
	case <-r.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
