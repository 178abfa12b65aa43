package xfetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNilClient 传入的 Client 为 nil。
	ErrNilClient = errors.New("xfetch: nil client")

	// ErrEmptyURL 请求地址为空。
	ErrEmptyURL = errors.New("xfetch: empty url")

	// ErrRequest 请求未能得到响应（连接失败、超时等）。
	ErrRequest = errors.New("xfetch: request failed")

	// ErrResponseTooLarge 响应体超过上限。
	ErrResponseTooLarge = errors.New("xfetch: response body too large")

	// ErrDecode 响应体不是合法的 JSON 或与目标类型不匹配。
	ErrDecode = errors.New("xfetch: decode failed")
)

// StatusError 非 200 响应。
type StatusError struct {
	Code   int
	Status string // 如 "503 Service Unavailable"
	URL    string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("xfetch: GET %s: %s", e.URL, status)
}

// Retryable 实现 xretry.RetryableError。任何非 200 响应默认都可重试；
// Load 与 LoadWithFetch 可用 WithPermanentClientErrors 让客户端错误立即失败。
func (e *StatusError) Retryable() bool {
	return true
}

// ClientError 报告是否为重试无法恢复的 4xx 响应。408 与 429 不算在内。
func (e *StatusError) ClientError() bool {
	return e.Code >= http.StatusBadRequest && e.Code < http.StatusInternalServerError &&
		e.Code != http.StatusRequestTimeout &&
		e.Code != http.StatusTooManyRequests
}

// StatusCode 返回 err 链上 StatusError 的状态码，不存在时返回 0。
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
