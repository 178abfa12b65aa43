package xlimit

import (
	"github.com/juju/clock"

	"github.com/omeyang/xrx/pkg/observability/xlog"
)

// DefaultKeyPrefix 限流键的默认前缀。
const DefaultKeyPrefix = "xrx:limit:"

// Option 配置 Limiter。
type Option func(*options)

type options struct {
	prefix   string
	logger   xlog.Logger
	clock    clock.Clock
	fallback Backend
}

func applyOptions(opts []Option) options {
	o := options{prefix: DefaultKeyPrefix, clock: clock.WallClock}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	return o
}

// WithKeyPrefix 设置键前缀，Redis 后端据此隔离不同应用。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithLogger 设置日志，默认 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock 设置本地后端的时间来源，nil 被忽略。
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithFallback 在主后端出错时改用 b 计算；nil 表示不降级，错误直接返回。
func WithFallback(b Backend) Option {
	return func(o *options) {
		o.fallback = b
	}
}

// LocalBackend 返回进程内令牌桶后端，可作为 WithFallback 的参数。
func LocalBackend(opts ...Option) Backend {
	o := applyOptions(opts)
	return newLocalBackend(o.clock)
}
