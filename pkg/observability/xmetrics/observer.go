package xmetrics

import (
	"context"
	"strconv"
)

// Kind 观测跨度类型。
type Kind int

const (
	// KindInternal 进程内的流水线。
	KindInternal Kind = iota
	// KindClient 对外发起的请求（HTTP 拉取等）。
	KindClient
	// KindConsumer 消费外部事件（Redis 频道、配置文件变更等）。
	KindConsumer
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindClient:
		return "Client"
	case KindConsumer:
		return "Consumer"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 观测结果状态。
type Status string

const (
	// StatusOK 正常完成。
	StatusOK Status = "ok"
	// StatusError 以错误终止。
	StatusError Status = "error"
	// StatusCancelled 被消费者取消。
	StatusCancelled Status = "cancelled"
)

// Attr 观测属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 观测跨度的创建参数。
type SpanOptions struct {
	// Component 组件名称，如 "xfetch"。
	Component string
	// Operation 操作名称，如 "load"。
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 观测跨度结束时的结果。
type Result struct {
	// Status 为空时根据 Err 推导。
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 一次观测跨度。
type Span interface {
	// End 结束观测并记录结果，多次调用只记录第一次。
	End(result Result)
}

// Observer 统一观测接口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 空实现。
type NoopObserver struct{}

// Start 返回 ctx 与空跨度，nil ctx 替换为 context.Background()。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度。
type NoopSpan struct{}

// End 空操作。
func (NoopSpan) End(Result) {}

// Start 使用 observer 开始观测，保证返回非 nil 的 ctx 与 Span。
// observer 为 nil 或自定义实现返回 nil 时兜底为空实现。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
