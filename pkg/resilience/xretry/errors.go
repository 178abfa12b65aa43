package xretry

import (
	"errors"

	retry "github.com/avast/retry-go/v5"
)

var (
	// ErrNilRetryer 在 nil *Retryer 上执行时返回。
	ErrNilRetryer = errors.New("xretry: nil retryer")
	// ErrNilContext 传入 nil context 时返回。
	ErrNilContext = errors.New("xretry: nil context")
	// ErrNilFunc 传入 nil 函数时返回。
	ErrNilFunc = errors.New("xretry: nil func")
)

// RetryableError 能声明自身是否可重试的错误。
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误，不应重试。
type PermanentError struct {
	Err error
}

// NewPermanentError 将 err 标记为永久性错误。
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Retryable 总是返回 false。
func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 临时性错误，应当重试。
type TemporaryError struct {
	Err error
}

// NewTemporaryError 将 err 标记为临时性错误。
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error { return e.Err }

// Retryable 总是返回 true。
func (e *TemporaryError) Retryable() bool { return true }

var (
	// Unrecoverable 以 retry-go 的方式把错误标记为不可恢复。
	Unrecoverable = retry.Unrecoverable
	// IsRecoverable 报告 err 是否未被 Unrecoverable 标记。
	IsRecoverable = retry.IsRecoverable
)

// IsRetryable 报告 err 是否可重试。
//
//   - nil：false（成功无需重试）
//   - 链上存在 RetryableError：以最外层的 Retryable() 为准
//   - 被 Unrecoverable 标记：false
//   - 其他：true
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return IsRecoverable(err)
}

// IsPermanent 报告 err 是否为不可重试的非 nil 错误。
func IsPermanent(err error) bool {
	return err != nil && !IsRetryable(err)
}
