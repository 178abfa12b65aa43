package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口。
//
// 所有方法都接收 context.Context，属性只接受 slog.Attr。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger，派生 Logger 与父级共享级别。
	With(attrs ...slog.Attr) Logger

	// WithGroup 返回带分组的派生 Logger。
	WithGroup(name string) Logger
}

// Leveler 动态级别控制，通过类型断言获取。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	// Enabled 在构造昂贵的日志参数前检查级别。
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel Build 的返回类型。
type LoggerWithLevel interface {
	Logger
	Leveler
}
