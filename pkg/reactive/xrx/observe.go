package xrx

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/omeyang/xrx/pkg/observability/xlog"
	"github.com/omeyang/xrx/pkg/observability/xmetrics"
)

// Log 以 Debug 级别记录 name 对应流水线的每个通知，Error 以 Warn 级别记录。
// logger 为 nil 时使用 xlog.Default()。
func Log[T any](src Source[T], logger xlog.Logger, name string) Source[T] {
	return Create(func(down Subscriber[T]) Teardown {
		l := logger
		if l == nil {
			l = xlog.Default()
		}
		l = l.With(xlog.Operator(name))
		ctx := context.Background()

		var count atomic.Int64
		var terminated atomic.Bool
		l.Debug(ctx, "subscribe")
		ref := &upstream{}
		ref.set(src.Subscribe(Funcs[T]{
			Next: func(v T) {
				count.Add(1)
				l.Debug(ctx, "next", slog.Any("value", v))
				down.OnNext(v)
			},
			Error: func(err error) {
				terminated.Store(true)
				l.Warn(ctx, "error", xlog.Err(err), xlog.Count(int(count.Load())))
				down.OnError(err)
			},
			Complete: func() {
				terminated.Store(true)
				l.Debug(ctx, "complete", xlog.Count(int(count.Load())))
				down.OnComplete()
			},
		}))
		return func() {
			ref.dispose()
			if !terminated.Load() {
				l.Debug(ctx, "unsubscribe", xlog.Count(int(count.Load())))
			}
		}
	})
}

// Instrument 将每个订阅的生命周期包装为一个 xmetrics Span。
//
// Span 带有 subscription_id（uuid）属性，在终止时以 ok/error 结束，
// 被取消时以 cancelled 结束，并记录收到的值个数 count。
func Instrument[T any](src Source[T], observer xmetrics.Observer, opts xmetrics.SpanOptions) Source[T] {
	return Create(func(down Subscriber[T]) Teardown {
		spanOpts := opts
		spanOpts.Attrs = append(append([]xmetrics.Attr(nil), opts.Attrs...),
			xmetrics.String("subscription_id", uuid.NewString()))
		_, span := xmetrics.Start(context.Background(), observer, spanOpts)

		var count atomic.Int64
		end := func(r xmetrics.Result) {
			r.Attrs = append(r.Attrs, xmetrics.Int64("count", count.Load()))
			span.End(r)
		}

		ref := &upstream{}
		ref.set(src.Subscribe(Funcs[T]{
			Next: func(v T) {
				count.Add(1)
				down.OnNext(v)
			},
			Error: func(err error) {
				end(xmetrics.Result{Err: err})
				down.OnError(err)
			},
			Complete: func() {
				end(xmetrics.Result{Status: xmetrics.StatusOK})
				down.OnComplete()
			},
		}))
		return func() {
			ref.dispose()
			// Span.End 只记录第一次，终止后此处为空操作
			end(xmetrics.Result{Status: xmetrics.StatusCancelled})
		}
	})
}
