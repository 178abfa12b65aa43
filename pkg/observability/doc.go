// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转
//   - xmetrics: 统一观测接口，OpenTelemetry 追踪与指标实现
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 业务代码只依赖接口，默认实现为空操作
package observability
