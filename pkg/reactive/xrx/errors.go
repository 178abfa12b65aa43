package xrx

import (
	"errors"
	"fmt"

	"github.com/omeyang/xrx/pkg/resilience/xretry"
)

// 参数校验相关错误。
var (
	// ErrNilFunc 表示传入了 nil 的回调函数（Map/Filter/FlatMap/Defer 等）。
	ErrNilFunc = errors.New("xrx: nil function")

	// ErrNilSource 表示数据源本身为 nil（如 FromChan 的 channel）。
	ErrNilSource = errors.New("xrx: nil source")

	// ErrEmpty 表示 First 的上游未发射任何值就完成。
	ErrEmpty = errors.New("xrx: source completed without values")

	// ErrPanic 表示用户函数发生 panic，被恢复后作为错误传递。
	ErrPanic = errors.New("xrx: recovered panic")
)

// TransformError Map/Filter 等变换函数失败产生的错误。
//
// 变换是确定性的，重新订阅不会改变结果，因此 TransformError 不可重试。
type TransformError struct {
	// Op 操作符名称，如 "map"、"filter"。
	Op string
	// Err 原始错误。
	Err error
}

func (e *TransformError) Error() string {
	if e.Err == nil {
		return "xrx: " + e.Op + " failed"
	}
	return fmt.Sprintf("xrx: %s failed: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError。
func (e *TransformError) Retryable() bool {
	return false
}

// ProducerError 生产者（网络 I/O、外部事件源等）报告的失败。
type ProducerError struct {
	// Source 生产者名称，如 "func"、"http"。
	Source string
	// Err 原始错误。
	Err error
}

// NewProducerError 创建生产者错误。
// err 已经是 *ProducerError 时原样返回，避免重复包装。
func NewProducerError(source string, err error) *ProducerError {
	var pe *ProducerError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProducerError{Source: source, Err: err}
}

func (e *ProducerError) Error() string {
	if e.Err == nil {
		return "xrx: producer " + e.Source + " failed"
	}
	return fmt.Sprintf("xrx: producer %s failed: %v", e.Source, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError。
// 内层错误被标记为永久性错误时不可重试，其余情况可重试。
func (e *ProducerError) Retryable() bool {
	if e.Err == nil {
		return true
	}
	return xretry.IsRetryable(e.Err)
}

// RetryExhaustedError 重试预算耗尽后的终止错误。
type RetryExhaustedError struct {
	// Attempts 已进行的尝试次数（等于观察到的错误次数）。
	Attempts int
	// Err 最后一次尝试的错误。
	Err error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("xrx: retry exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError，外层 Retry 不会再次重试已耗尽的错误。
func (e *RetryExhaustedError) Retryable() bool {
	return false
}

// 确保实现了 xretry.RetryableError 接口
var (
	_ xretry.RetryableError = (*TransformError)(nil)
	_ xretry.RetryableError = (*ProducerError)(nil)
	_ xretry.RetryableError = (*RetryExhaustedError)(nil)
)

// panicError 将 recover() 的结果转换为 error。
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
