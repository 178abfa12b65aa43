// Package xbreaker 在 [sony/gobreaker/v2] 之上提供熔断器。
//
// 熔断器拒绝请求时返回 *BreakerError，它声明 Retryable() == false，
// 因此 xretry 与 xrx.Retry 都不会对其退避重试，而是立即把错误交给下游。
//
// 状态：
//   - StateClosed：请求正常通过并计数
//   - StateOpen：请求直接失败，Timeout 后进入半开
//   - StateHalfOpen：放行至多 MaxRequests 个探测请求
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
