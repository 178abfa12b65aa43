package xrx

import (
	"context"
	"fmt"
)

// Of 依次同步发射 values 后完成。
func Of[T any](values ...T) Source[T] {
	return FromSlice(values)
}

// FromSlice 依次同步发射 values 中的元素后完成。
//
// 下游停止接收后不再发射剩余的值。切片在订阅时读取，调用方不应再修改它。
func FromSlice[T any](values []T) Source[T] {
	return Create(func(sub Subscriber[T]) Teardown {
		for _, v := range values {
			if Stopped(sub) {
				break
			}
			sub.OnNext(v)
		}
		sub.OnComplete()
		return nil
	})
}

// Empty 订阅即完成。
func Empty[T any]() Source[T] {
	return Source[T]{}
}

// Throw 订阅即以 err 终止。err 为 nil 时等价于 Empty。
func Throw[T any](err error) Source[T] {
	return Source[T]{subscribe: func(sub Subscriber[T]) Teardown {
		if err != nil {
			sub.OnError(err)
		} else {
			sub.OnComplete()
		}
		return nil
	}}
}

// Defer 每次订阅时调用 factory 构造新的 Source 并转订阅。
//
// 与 Retry 组合时，每次重试都会得到一个全新的上游。
// factory 为 nil 或 panic 时以错误终止。
func Defer[T any](factory func() Source[T]) Source[T] {
	if factory == nil {
		return Throw[T](fmt.Errorf("%w: defer", ErrNilFunc))
	}
	return Create(func(down Subscriber[T]) Teardown {
		inner := factory()
		ref := &upstream{}
		ref.set(inner.Subscribe(down))
		return ref.dispose
	})
}

// FromFunc 在独立 goroutine 中执行 fn，成功时发射一个值后完成，
// 失败时以 *ProducerError 终止。
//
// Teardown 取消传给 fn 的 ctx；ctx 被取消后 fn 的结果被丢弃。
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Source[T] {
	if fn == nil {
		return Throw[T](fmt.Errorf("%w: func", ErrNilFunc))
	}
	return Create(func(sub Subscriber[T]) Teardown {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			v, err := callFunc(ctx, fn)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				sub.OnError(NewProducerError("func", err))
				return
			}
			sub.OnNext(v)
			sub.OnComplete()
		}()
		return Teardown(cancel)
	})
}

// FromChan 为 ch 中收到的每个值发射一次 OnNext，ch 关闭时完成。
//
// 读取在独立 goroutine 中进行；Teardown 使其退出，尚未读取的值留在 ch 中。
// ch 为 nil 时以 ErrNilSource 终止。
func FromChan[T any](ch <-chan T) Source[T] {
	if ch == nil {
		return Throw[T](fmt.Errorf("%w: chan", ErrNilSource))
	}
	return Create(func(sub Subscriber[T]) Teardown {
		done := make(chan struct{})
		go func() {
			for {
				select {
				case <-done:
					return
				case v, ok := <-ch:
					if !ok {
						sub.OnComplete()
						return
					}
					sub.OnNext(v)
				}
			}
		}()
		return func() { close(done) }
	})
}

func callFunc[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn(ctx)
}
