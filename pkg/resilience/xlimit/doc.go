// Package xlimit 提供按键限流。
//
// Limiter 以 Rate 描述配额（每 Period 最多 Limit 次，Burst 为突发容量），
// 由 Backend 执行具体的令牌计算：
//
//   - NewLocal：进程内令牌桶，时间来源可注入 clock.Clock
//   - NewRedis：基于 redis_rate 的分布式 GCRA 限流，多个进程共享配额
//
// Redis 后端出错时，可通过 WithFallback 降级到本地后端。
//
// Check 在被限流时返回 *LimitError，它满足 errors.Is(err, ErrRateLimited)
// 并报告 Retryable() == true，可直接交给 xretry 或 xrx 的 Retry 操作符，
// 在退避之后重新尝试。
package xlimit
