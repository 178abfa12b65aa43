package xrx

import (
	"fmt"
	"sync/atomic"
)

// Operator Source 到 Source 的变换。
type Operator[T, U any] func(Source[T]) Source[U]

// Pipe 依次应用同类型操作符，nil 操作符被跳过。
func (s Source[T]) Pipe(ops ...Operator[T, T]) Source[T] {
	out := s
	for _, op := range ops {
		if op != nil {
			out = op(out)
		}
	}
	return out
}

// lift 构造"订阅上游并以派生 Subscriber 转发"的操作符骨架。
//
// derive 基于下游 Subscriber 与失败回调构造上游 Subscriber；fail 会终止下游并
// 使后续上游通知失效。返回的 Teardown 先取消上游，再执行 cleanup（可为 nil）。
func lift[T, U any](src Source[T], derive func(down Subscriber[U], stopped *atomic.Bool) (Subscriber[T], Teardown)) Source[U] {
	return Create(func(down Subscriber[U]) Teardown {
		var stopped atomic.Bool
		ref := &upstream{}
		up, cleanup := derive(down, &stopped)
		ref.set(src.Subscribe(liftedSubscriber[T, U]{Subscriber: up, stopped: &stopped, down: down}))
		return func() {
			stopped.Store(true)
			ref.dispose()
			if cleanup != nil {
				cleanup()
			}
		}
	})
}

// liftedSubscriber 为派生 Subscriber 附加 Stopper，使上游能感知操作符已失效或下游已停止。
type liftedSubscriber[T, U any] struct {
	Subscriber[T]
	stopped *atomic.Bool
	down    Subscriber[U]
}

func (l liftedSubscriber[T, U]) Stopped() bool {
	return l.stopped.Load() || Stopped(l.down)
}

// Map 对每个上游值应用 fn 并转发结果，Error/Complete 原样转发。
//
// fn 发生 panic 时以 *TransformError 终止下游并取消上游。
func Map[T, U any](src Source[T], fn func(T) U) Source[U] {
	if fn == nil {
		return Throw[U](fmt.Errorf("%w: map", ErrNilFunc))
	}
	return MapErr(src, func(v T) (U, error) {
		return fn(v), nil
	})
}

// MapErr 与 Map 相同，但 fn 可返回错误；错误以 *TransformError 终止下游。
func MapErr[T, U any](src Source[T], fn func(T) (U, error)) Source[U] {
	if fn == nil {
		return Throw[U](fmt.Errorf("%w: map", ErrNilFunc))
	}
	return lift(src, func(down Subscriber[U], stopped *atomic.Bool) (Subscriber[T], Teardown) {
		return Funcs[T]{
			Next: func(v T) {
				if stopped.Load() {
					return
				}
				out, err := callMap(fn, v)
				if err != nil {
					stopped.Store(true)
					down.OnError(&TransformError{Op: "map", Err: err})
					return
				}
				down.OnNext(out)
			},
			Error:    down.OnError,
			Complete: down.OnComplete,
		}, nil
	})
}

// Filter 只转发 pred 返回 true 的值，Error/Complete 原样转发。
func Filter[T any](src Source[T], pred func(T) bool) Source[T] {
	if pred == nil {
		return Throw[T](fmt.Errorf("%w: filter", ErrNilFunc))
	}
	return lift(src, func(down Subscriber[T], stopped *atomic.Bool) (Subscriber[T], Teardown) {
		return Funcs[T]{
			Next: func(v T) {
				if stopped.Load() {
					return
				}
				ok, err := callPredicate(pred, v)
				if err != nil {
					stopped.Store(true)
					down.OnError(&TransformError{Op: "filter", Err: err})
					return
				}
				if ok {
					down.OnNext(v)
				}
			},
			Error:    down.OnError,
			Complete: down.OnComplete,
		}, nil
	})
}

// Filter 方法形式，等价于 Filter(s, pred)。
func (s Source[T]) Filter(pred func(T) bool) Source[T] {
	return Filter(s, pred)
}

// Tap 在转发前调用 hooks 中对应的回调，用于日志、计数等副作用。
func Tap[T any](src Source[T], hooks Funcs[T]) Source[T] {
	return lift(src, func(down Subscriber[T], _ *atomic.Bool) (Subscriber[T], Teardown) {
		return Funcs[T]{
			Next: func(v T) {
				hooks.OnNext(v)
				down.OnNext(v)
			},
			Error: func(err error) {
				hooks.OnError(err)
				down.OnError(err)
			},
			Complete: func() {
				hooks.OnComplete()
				down.OnComplete()
			},
		}, nil
	})
}

// Tap 方法形式，等价于 Tap(s, hooks)。
func (s Source[T]) Tap(hooks Funcs[T]) Source[T] {
	return Tap(s, hooks)
}

func callMap[T, U any](fn func(T) (U, error), v T) (out U, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn(v)
}

func callPredicate[T any](pred func(T) bool, v T) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return pred(v), nil
}
