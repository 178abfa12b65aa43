package xrun

import (
	"context"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
)

// Consume 返回一个订阅 src 的服务函数。
//
// 每个值交给 next；src 完成时返回 nil，出错时返回该错误；
// ctx 取消时取消订阅并返回 ctx.Err()。
func Consume[T any](src xrx.Source[T], next func(T)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		s := src.Subscribe(xrx.Funcs[T]{
			Next:     next,
			Error:    func(err error) { done <- err },
			Complete: func() { done <- nil },
		})
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			s.Unsubscribe()
			return ctx.Err()
		}
	}
}
