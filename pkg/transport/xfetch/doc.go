// Package xfetch 以 xrx.Source 的形式发起 HTTP GET 并解码 JSON。
//
// Client.Fetch 是一次性的阻塞调用：要么得到一个响应体，要么得到一个错误。
// Load 与 LoadWithFetch 把它包装成惰性的 Source，直到订阅才发出请求，
// 取消订阅会中止进行中的请求，失败按 xrx.RetryStrategy 重新订阅：
//
//	src := xfetch.Load[[]Movie](client, "https://example.com/movies.json")
//	movies, err := xrx.First(ctx, src)
//
// 非 200 响应返回 *StatusError，默认可重试；Load 与 LoadWithFetch 传入
// WithPermanentClientErrors 时 4xx（408 与 429 除外）立即失败。
// 熔断器打开时返回的错误不会被重试。
package xfetch
