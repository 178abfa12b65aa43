package xlimit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited 请求被限流，使用 errors.Is 判断。
	ErrRateLimited = errors.New("xlimit: rate limited")
	// ErrInvalidRate Rate 的 Limit 或 Period 非正。
	ErrInvalidRate = errors.New("xlimit: invalid rate")
	// ErrNilClient Redis 客户端为 nil。
	ErrNilClient = errors.New("xlimit: nil redis client")
	// ErrNilBackend 后端为 nil。
	ErrNilBackend = errors.New("xlimit: nil backend")
	// ErrEmptyKey 限流键为空。
	ErrEmptyKey = errors.New("xlimit: empty key")
)

// LimitError 限流错误，携带被限流的键与建议的等待时间。
type LimitError struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("xlimit: rate limited: key=%s limit=%d retry_after=%s", e.Key, e.Limit, e.RetryAfter)
}

// Is 使 errors.Is(err, ErrRateLimited) 成立。
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Retryable 限流是暂时的，总是可重试。
func (e *LimitError) Retryable() bool {
	return true
}

// IsRateLimited 报告 err 是否为限流错误。
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
