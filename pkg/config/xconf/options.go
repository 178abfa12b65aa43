package xconf

import (
	"time"

	"github.com/juju/clock"
)

// Option 配置加载选项。
type Option func(*options)

type options struct {
	delim string
	tag   string
}

func applyOptions(opts []Option) options {
	o := options{delim: ".", tag: "koanf"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithDelim 设置配置键分隔符，默认为 "."。
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签，默认为 "koanf"。
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

// DefaultDebounce 文件连续变更合并为一次重载的时间窗口。
const DefaultDebounce = 100 * time.Millisecond

// WatchOption 配置 WatchSource。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	clock    clock.Clock
}

func applyWatchOptions(opts []WatchOption) watchOptions {
	o := watchOptions{debounce: DefaultDebounce, clock: clock.WallClock}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithDebounce 设置防抖窗口，d <= 0 表示每个事件都立即重载。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = max(d, 0)
	}
}

// WithWatchClock 设置防抖定时器的时钟来源，nil 被忽略。
func WithWatchClock(c clock.Clock) WatchOption {
	return func(o *watchOptions) {
		if c != nil {
			o.clock = c
		}
	}
}
