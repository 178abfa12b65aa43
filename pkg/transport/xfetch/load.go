package xfetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
	"github.com/omeyang/xrx/pkg/resilience/xretry"
)

// Load 返回惰性的 JSON 加载 Source。
//
// 每次订阅在独立 goroutine 中发出一次请求，成功时发射解码后的值并完成，
// 失败以 *xrx.ProducerError 结束；取消订阅会中止请求且不再发射任何通知。
// 默认重试 3 次、间隔 1500ms，可用 WithRetryStrategy 覆盖；任何非 200 响应都会重试，
// WithPermanentClientErrors 让 4xx 立即失败。
func Load[T any](c *Client, url string, opts ...LoadOption) xrx.Source[T] {
	if c == nil {
		return xrx.Throw[T](ErrNilClient)
	}
	o := applyLoadOptions(opts, LoadAttempts, LoadDelay)

	src := xrx.Create(func(sub xrx.Subscriber[T]) xrx.Teardown {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			v, err := fetchJSON[T](ctx, c, url)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				sub.OnError(xrx.NewProducerError("http", o.classify(err)))
				return
			}
			sub.OnNext(v)
			sub.OnComplete()
		}()
		return xrx.Teardown(cancel)
	})
	return src.Retry(o.strategy, o.retry...)
}

// LoadWithFetch 与 Load 语义相同，但由 Defer 与 FromFunc 组合而成。
// 默认重试 4 次、间隔 1000ms。
func LoadWithFetch[T any](c *Client, url string, opts ...LoadOption) xrx.Source[T] {
	if c == nil {
		return xrx.Throw[T](ErrNilClient)
	}
	o := applyLoadOptions(opts, LoadWithFetchAttempts, LoadWithFetchDelay)

	return xrx.Defer(func() xrx.Source[T] {
		return xrx.FromFunc(func(ctx context.Context) (T, error) {
			v, err := fetchJSON[T](ctx, c, url)
			return v, o.classify(err)
		})
	}).Retry(o.strategy, o.retry...)
}

// FetchJSON 调用 Client.Fetch 并把响应体解码为 T。解码失败是永久性错误。
func FetchJSON[T any](ctx context.Context, c *Client, url string) (T, error) {
	body, err := c.Fetch(ctx, url)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](body)
}

// fetchJSON 只请求一次，重试交给 Source 的重新订阅。
func fetchJSON[T any](ctx context.Context, c *Client, url string) (T, error) {
	body, err := c.fetchOnce(ctx, url)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](body)
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		var zero T
		return zero, xretry.NewPermanentError(fmt.Errorf("%w: %w", ErrDecode, err))
	}
	return v, nil
}
