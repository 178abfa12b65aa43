package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xrx/pkg/observability/xlog"
)

// Option 配置 Group 与 Run。
type Option func(*options)

type options struct {
	logger          xlog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
	sigCh           <-chan os.Signal
}

func applyOptions(opts []Option) options {
	o := options{name: "xrun"}
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

// DefaultSignals 返回默认监听的信号：SIGHUP、SIGINT、SIGTERM、SIGQUIT。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// WithLogger 设置生命周期日志，默认 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName 设置日志中的 Group 名称，默认 "xrun"。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 覆盖 Run 监听的信号，空列表表示使用默认值。
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *options) {
		o.signals = copied
	}
}

// WithoutSignalHandler 让 Run 不监听任何信号。
func WithoutSignalHandler() Option {
	return func(o *options) {
		o.noSignalHandler = true
	}
}

// withSignalChan 用给定通道代替 signal.Notify，测试中避免发送真实信号。
func withSignalChan(c <-chan os.Signal) Option {
	return func(o *options) {
		o.sigCh = c
	}
}
