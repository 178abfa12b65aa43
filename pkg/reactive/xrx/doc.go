// Package xrx 提供基于推送模型的响应式流引擎。
//
// # 核心概念
//
//   - Source：异步值的生产者描述。Subscribe 时才开始生产（惰性、单播）。
//   - Subscriber：接收 OnNext / OnError / OnComplete 三类通知的消费端。
//   - Teardown：订阅结束时执行且只执行一次的清理动作。
//   - Subscription：消费者持有的句柄，Unsubscribe 幂等。
//   - 操作符：Source -> Source 的纯函数（Map、Filter、Delay、Retry、FlatMap 等）。
//
// # 通知契约
//
// 每个订阅收到零个或多个 OnNext，随后至多一个终止通知（OnError 或 OnComplete）。
// 终止通知之后不再有任何通知。该契约由 Subscribe 统一保证：
// 每次 Subscribe 都会把调用方的 Subscriber 包装成串行化守卫，
// 生产者即使在多个 goroutine 并发发射，下游看到的仍是有序、互斥的调用序列。
//
// Unsubscribe 返回后不会再开始新的通知。终止通知送达前 Teardown 已执行
// （同步发射终止通知的生产者除外：其 Teardown 在生产函数返回后立即执行）。
//
// # 创建 Source
//
//	src := xrx.Create(func(sub xrx.Subscriber[int]) xrx.Teardown {
//	    sub.OnNext(1)
//	    sub.OnComplete()
//	    return nil
//	})
//
// 内置的 Of、FromSlice、FromFunc、FromChan、Defer、Empty、Throw 覆盖常见场景。
//
// # 组合操作符
//
// 类型不变的操作符以方法形式提供，可链式调用；改变元素类型的 Map / MapErr / FlatMap
// 是包级函数：
//
//	doubled := xrx.Map(xrx.Of(1, 5, 10), func(x int) int { return x * 2 })
//	sub := doubled.
//	    Filter(func(x int) bool { return x > 4 }).
//	    Delay(300 * time.Millisecond).
//	    SubscribeFunc(onNext, onError, onComplete)
//	defer sub.Unsubscribe()
//
// # 重试
//
// Retry 在上游报错时按 RetryStrategy 决定是否延迟后重新订阅上游（重新执行生产函数），
// 预算耗尽时以 *RetryExhaustedError 终止。策略词汇复用 xretry 的
// RetryPolicy / BackoffPolicy：
//
//	src.Retry(xrx.NewRetryStrategy(3, 1500*time.Millisecond))
//
// # 错误分类
//
//   - *TransformError：Map / Filter 的函数失败（返回错误或 panic），不可重试
//   - *ProducerError：生产者失败（I/O、非 2xx 状态等），默认可重试
//   - *RetryExhaustedError：重试预算耗尽，包装最后一次生产者错误
//
// 所有错误都经由 OnError 送达，不会跨越 Subscribe 边界抛出。
//
// # 定时器
//
// Delay 与 Retry 的等待基于 [github.com/juju/clock]，默认使用 WallClock，
// 测试中可通过 WithClock 注入 testclock。
package xrx
