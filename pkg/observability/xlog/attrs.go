package xlog

import (
	"log/slog"
	"time"
)

// 标准属性 key。
const (
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyCount      = "count"
	KeyOperator   = "operator"
	KeyAttempt    = "attempt"
	KeyURL        = "url"
	KeyStatusCode = "status_code"
	KeyComponent  = "component"
)

// Err 错误属性，err 为 nil 时返回被 slog 忽略的空属性。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 耗时属性。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Count 计数属性。
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Operator 操作符或流水线名称。
func Operator(name string) slog.Attr {
	return slog.String(KeyOperator, name)
}

// Attempt 第几次尝试（从 1 开始）。
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// URL 请求地址。
func URL(u string) slog.Attr {
	return slog.String(KeyURL, u)
}

// StatusCode HTTP 状态码。
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Component 组件名称。
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}
