package xlog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// 全局 Logger 供 CLI 与未注入 Logger 的组件使用。
var global atomic.Pointer[LoggerWithLevel]

// Default 返回全局 Logger，首次调用时惰性创建（stderr，Info，text）。
func Default() LoggerWithLevel {
	if l := global.Load(); l != nil {
		return *l
	}
	l, _, _ := New().Build()
	if global.CompareAndSwap(nil, &l) {
		return l
	}
	return *global.Load()
}

// SetDefault 替换全局 Logger，nil 被忽略。
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	global.Store(&l)
}

// ResetDefault 恢复为未初始化状态，仅用于测试。
func ResetDefault() {
	global.Store(nil)
}

// Debug 使用全局 Logger 记录 Debug 日志。
func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelDebug, msg, attrs)
}

// Info 使用全局 Logger 记录 Info 日志。
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelInfo, msg, attrs)
}

// Warn 使用全局 Logger 记录 Warn 日志。
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelWarn, msg, attrs)
}

// Error 使用全局 Logger 记录 Error 日志。
func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	globalLog(ctx, slog.LevelError, msg, attrs)
}

func globalLog(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	l := Default()
	if xl, ok := l.(*xlogger); ok {
		xl.log(ctx, level, msg, attrs, 1)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(ctx, msg, attrs...)
	case slog.LevelInfo:
		l.Info(ctx, msg, attrs...)
	case slog.LevelWarn:
		l.Warn(ctx, msg, attrs...)
	default:
		l.Error(ctx, msg, attrs...)
	}
}
