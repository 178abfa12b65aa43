package xrx

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// FlatMap 将每个上游值映射为内层 Source 并合并所有内层的值。
//
// 内层按值到达顺序订阅、并发运行，合并后的值按实际到达顺序转发。
// 任一内层或外层出错即以该错误终止，并取消其余所有订阅；
// 外层与全部内层都完成后才完成。fn panic 时以 *TransformError 终止。
func FlatMap[T, U any](src Source[T], fn func(T) Source[U]) Source[U] {
	if fn == nil {
		return Throw[U](fmt.Errorf("%w: flatmap", ErrNilFunc))
	}
	return Create(func(down Subscriber[U]) Teardown {
		m := &merger[T, U]{
			down:   down,
			fn:     fn,
			active: 1,
			inners: make(map[uint64]*upstream),
		}
		m.outer.set(src.Subscribe(Funcs[T]{
			Next:     m.next,
			Error:    m.fail,
			Complete: m.finishOne,
		}))
		return m.stop
	})
}

type merger[T, U any] struct {
	down    Subscriber[U]
	fn      func(T) Source[U]
	outer   upstream
	stopped atomic.Bool

	mu     sync.Mutex
	active int // 外层加上仍在运行的内层数量
	nextID uint64
	inners map[uint64]*upstream
}

func (m *merger[T, U]) next(v T) {
	if m.stopped.Load() {
		return
	}
	inner, err := callFlat(m.fn, v)
	if err != nil {
		m.fail(&TransformError{Op: "flatmap", Err: err})
		return
	}

	m.mu.Lock()
	if m.inners == nil {
		m.mu.Unlock()
		return
	}
	id := m.nextID
	m.nextID++
	ref := &upstream{}
	m.inners[id] = ref
	m.active++
	m.mu.Unlock()

	ref.set(inner.Subscribe(Funcs[U]{
		Next: func(u U) {
			if !m.stopped.Load() {
				m.down.OnNext(u)
			}
		},
		Error: m.fail,
		Complete: func() {
			m.mu.Lock()
			delete(m.inners, id)
			m.mu.Unlock()
			m.finishOne()
		},
	}))
}

func (m *merger[T, U]) fail(err error) {
	if m.stopped.Swap(true) {
		return
	}
	m.down.OnError(err)
}

func (m *merger[T, U]) finishOne() {
	m.mu.Lock()
	m.active--
	last := m.active == 0
	m.mu.Unlock()
	if last && !m.stopped.Swap(true) {
		m.down.OnComplete()
	}
}

func (m *merger[T, U]) stop() {
	m.stopped.Store(true)
	m.outer.dispose()

	m.mu.Lock()
	inners := m.inners
	m.inners = nil
	m.mu.Unlock()

	for _, ref := range inners {
		ref.dispose()
	}
}

func callFlat[T, U any](fn func(T) Source[U], v T) (out Source[U], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn(v), nil
}
