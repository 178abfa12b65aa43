package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Group 管理一组并发服务，任一服务出错即取消全部。
// Go 与 Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     options
}

// NewGroup 创建 Group，返回的 context 在任一服务出错或 Cancel 时取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     applyOptions(opts),
	}, egCtx
}

// Go 在新 goroutine 中运行 fn。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// Cancel 以 cause 取消所有服务，Wait 会返回该 cause。
// cause 不应包装 context.Canceled，否则会被当作普通取消过滤掉。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Wait 等待所有服务退出。
//
// 由 Group 自身取消导致的 context.Canceled 被过滤，显式的取消原因
// （如 *SignalError）即使所有服务都返回 nil 也会被返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.opts.logger.Debug(context.Background(), "all services stopped", slog.String("group", g.opts.name))

	cause := context.Cause(g.causeCtx)
	if cause != nil && errors.Is(cause, context.Canceled) {
		cause = nil
	}
	switch {
	case errors.Is(err, context.Canceled) && g.causeCtx.Err() != nil:
		return cause
	case err == nil && g.causeCtx.Err() != nil:
		return cause
	default:
		return err
	}
}

// Run 运行 services 直到全部退出，默认在收到 DefaultSignals 时以 *SignalError 取消。
// 所有服务正常返回后信号监听随之结束。
func Run(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		g.Go(g.waitSignal)
	}
	if len(services) == 0 {
		g.cancel(nil)
	}

	var remaining atomic.Int32
	remaining.Store(int32(len(services))) //nolint:gosec // 服务数量不会溢出
	for _, svc := range services {
		g.Go(func(ctx context.Context) error {
			defer func() {
				if remaining.Add(-1) == 0 {
					g.cancel(nil)
				}
			}()
			if svc == nil {
				return ErrNilFunc
			}
			return svc(ctx)
		})
	}
	return g.Wait()
}

func (g *Group) waitSignal(ctx context.Context) error {
	sigCh := g.opts.sigCh
	if sigCh == nil {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case sig := <-sigCh:
		g.opts.logger.Info(ctx, "received signal", slog.String("group", g.opts.name), slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
