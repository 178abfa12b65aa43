package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrOpenState 熔断器处于打开状态。
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下探测请求已满。
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	// ErrNilFunc 传入的操作函数为 nil。
	ErrNilFunc = errors.New("xbreaker: function cannot be nil")
)

// BreakerError 熔断器拒绝请求时返回的错误。
type BreakerError struct {
	Err   error // ErrOpenState 或 ErrTooManyRequests
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 总是返回 false：熔断期间重试只会继续冲击下游。
func (e *BreakerError) Retryable() bool {
	return false
}

// wrapBreakerError 只包装 gobreaker 直接返回的哨兵错误，
// 状态从错误本身推导，不再回查 State()。
func wrapBreakerError(err error, name string) error {
	switch err {
	case nil:
		return nil
	case gobreaker.ErrOpenState:
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case gobreaker.ErrTooManyRequests:
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsOpen 报告 err 是否因熔断器打开而产生。
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState)
}

// IsBreakerError 报告 err 是否为熔断器拒绝（打开或半开请求过多）。
func IsBreakerError(err error) bool {
	return IsOpen(err) || errors.Is(err, ErrTooManyRequests)
}
