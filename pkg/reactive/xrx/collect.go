package xrx

import (
	"context"
	"sync"
)

// Collect 订阅 src 并阻塞到终止，返回收到的全部值。
//
// src 以错误终止时返回已收到的值与该错误。ctx 先结束时取消订阅并返回
// ctx.Err()。
func Collect[T any](ctx context.Context, src Source[T]) ([]T, error) {
	var (
		mu     sync.Mutex
		values []T
	)
	sub := src.Subscribe(Funcs[T]{
		Next: func(v T) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
	})

	select {
	case <-sub.Done():
	case <-ctx.Done():
		sub.Unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		return values, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return values, sub.Err()
}

// First 订阅 src 并返回第一个值，随后取消订阅。
//
// src 未发射任何值就完成时返回 ErrEmpty。
func First[T any](ctx context.Context, src Source[T]) (T, error) {
	var (
		zero T
		got  = make(chan T, 1)
	)
	sub := src.Subscribe(Funcs[T]{
		Next: func(v T) {
			select {
			case got <- v:
			default:
			}
		},
	})
	defer sub.Unsubscribe()

	select {
	case v := <-got:
		return v, nil
	case <-sub.Done():
		select {
		case v := <-got:
			return v, nil
		default:
		}
		if err := sub.Err(); err != nil {
			return zero, err
		}
		return zero, ErrEmpty
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
