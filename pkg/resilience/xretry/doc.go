// Package xretry 定义重试决策与退避间隔的策略接口，供 xrx 的 Retry 操作符
// 与 xfetch 的传输层重试共用。
//
// # 策略
//
//   - RetryPolicy：第 attempt 次失败后是否继续（FixedRetryPolicy 即"尝试预算"）
//   - BackoffPolicy：下一次尝试之前等待多久
//
// 两者都是无状态的纯函数式接口，同一实例可被多个订阅并发使用。
//
// # 错误分类
//
// 错误通过 RetryableError 接口声明自己是否可重试：
//
//   - NewPermanentError(err)：永不重试
//   - NewTemporaryError(err)：总是可重试
//   - Unrecoverable(err)：retry-go 的不可恢复标记，效果同 PermanentError
//
// 未声明的错误默认可重试。
//
// # 同步执行
//
// Retryer 在当前 goroutine 中阻塞执行"调用-等待-重试"循环，底层使用
// [avast/retry-go/v5]。响应式的非阻塞重试见 xrx.Retry。
//
//	r := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
//	    xretry.WithBackoffPolicy(xretry.NewExponentialBackoff()),
//	)
//	body, err := xretry.DoWithResult(ctx, r, fetch)
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
