// Package xlog 基于 log/slog 的结构化日志。
//
// 所有日志方法强制传入 context.Context，属性只接受 slog.Attr。
// Build 返回的 Logger 支持运行时调整级别；SetRotation 通过 lumberjack
// 输出到按大小轮转的文件。
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
//	logger.Info(ctx, "retrying", xlog.Operator("load"), xlog.Attempt(2))
//
// 全局 Logger（Default/SetDefault 及包级 Debug/Info/Warn/Error）面向
// CLI 等简单场景，库代码优先通过选项注入 Logger。
package xlog
