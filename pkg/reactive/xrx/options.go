package xrx

import "github.com/juju/clock"

// Clock 定时器来源，Delay 与 Retry 通过它调度非阻塞等待。
type Clock = clock.Clock

// Option 配置 Delay / Retry 等基于定时器的操作符。
type Option func(*options)

type options struct {
	clock           Clock
	drainOnComplete bool
}

func applyOptions(opts []Option) options {
	o := options{clock: clock.WallClock}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithClock 设置定时器来源，nil 被忽略。
// 默认使用 clock.WallClock，测试中可注入 testclock。
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithDrainOnComplete 让 Delay 在所有已延迟的值送出之后再转发 Complete。
//
// 默认情况下 Complete 与 Error 一样立即转发，尚未到期的值随订阅结束被丢弃。
// Error 始终立即转发，不受此选项影响。
func WithDrainOnComplete() Option {
	return func(o *options) {
		o.drainOnComplete = true
	}
}
