package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xrx/pkg/config/xconf"
	"github.com/omeyang/xrx/pkg/lifecycle/xrun"
	"github.com/omeyang/xrx/pkg/observability/xlog"
	"github.com/omeyang/xrx/pkg/reactive/xrx"
	"github.com/omeyang/xrx/pkg/resilience/xlimit"
	"github.com/omeyang/xrx/pkg/transport/xfetch"
)

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// isCLIUsageError 判断 urfave/cli 自身产生的参数解析错误（未知 flag、非法取值）。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "flag provided but not defined") ||
		strings.Contains(msg, "invalid value") ||
		strings.Contains(msg, "No help topic")
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createNumbersCommand(),
		createLoadCommand(),
		createWatchCommand(),
	}
}

// createNumbersCommand 创建 numbers 子命令。
func createNumbersCommand() *cli.Command {
	return &cli.Command{
		Name:  "numbers",
		Usage: "Of(1,5,10) 间隔发射，map(x*2) 后 filter(>4)",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "相邻两个值的发射间隔",
				Value: 500 * time.Millisecond,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, logger, cleanup, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return cmdNumbers(ctx, cmd.Root().Writer, logger, cmd.Duration("interval"))
		},
	}
}

// createLoadCommand 创建 load 子命令。
func createLoadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "带重试地加载 JSON",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "attempts",
				Aliases: []string{"a"},
				Usage:   "重试预算（含首次订阅），默认取配置或内置值",
			},
			&cli.DurationFlag{
				Name:    "delay",
				Aliases: []string{"d"},
				Usage:   "重试间隔，默认取配置或内置值",
			},
			&cli.IntFlag{
				Name:  "rate",
				Usage: "每秒请求上限，0 表示不限流",
			},
			&cli.BoolFlag{
				Name:  "with-fetch",
				Usage: "使用 Defer + FromFunc 组合的加载方式",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "4xx 响应（408 与 429 除外）不重试",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return &usageError{msg: "load 需要且只需要一个 <url> 参数"}
			}
			s, logger, cleanup, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			req := loadRequest{
				url:       cmd.Args().First(),
				withFetch: cmd.Bool("with-fetch"),
				failFast:  cmd.Bool("fail-fast"),
				attempts:  s.Retry.Attempts,
				delay:     s.Retry.Delay,
				timeout:   s.Fetch.Timeout,
				rate:      s.Fetch.Rate,
			}
			if cmd.IsSet("rate") {
				req.rate = cmd.Int("rate")
			}
			if cmd.IsSet("attempts") {
				req.attempts = cmd.Int("attempts")
			}
			if cmd.IsSet("delay") {
				req.delay = cmd.Duration("delay")
			}
			if req.attempts < 0 || req.delay < 0 || req.rate < 0 {
				return &usageError{msg: "attempts、delay 与 rate 不能为负数"}
			}
			return cmdLoad(ctx, cmd.Root().Writer, logger, req)
		},
	}
}

// createWatchCommand 创建 watch 子命令。
func createWatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "打印配置文件的每次重载，直到 Ctrl+C",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return &usageError{msg: "watch 需要且只需要一个 <file> 参数"}
			}
			_, logger, cleanup, err := prepare(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return cmdWatch(ctx, cmd.Root().Writer, logger, cmd.Args().First())
		},
	}
}

// spaced 依次发射 values，相邻两个值之间等待 interval。
func spaced[T any](clk clock.Clock, interval time.Duration, values ...T) xrx.Source[T] {
	return xrx.Create(func(sub xrx.Subscriber[T]) xrx.Teardown {
		done := make(chan struct{})
		go func() {
			for i, v := range values {
				if i > 0 && interval > 0 {
					select {
					case <-clk.After(interval):
					case <-done:
						return
					}
				}
				select {
				case <-done:
					return
				default:
				}
				sub.OnNext(v)
			}
			sub.OnComplete()
		}()
		return func() { close(done) }
	})
}

// numbersPipeline 是 numbers 命令的流水线：x*2 后保留大于 4 的值。
func numbersPipeline(src xrx.Source[int]) xrx.Source[int] {
	return xrx.Map(src, func(x int) int { return x * 2 }).
		Filter(func(x int) bool { return x > 4 })
}

func cmdNumbers(ctx context.Context, w io.Writer, logger xlog.Logger, interval time.Duration) error {
	src := xrx.Log(numbersPipeline(spaced(clock.WallClock, interval, 1, 5, 10)), logger, "numbers")
	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger), xrun.WithName("numbers")},
		xrun.Consume(src, func(v int) { fmt.Fprintln(w, v) }))
	if err != nil {
		return ignoreInterrupt(err)
	}
	fmt.Fprintln(w, "done")
	return nil
}

// loadRequest load 命令的参数，零值字段使用 xfetch 的默认值。
type loadRequest struct {
	url       string
	withFetch bool
	failFast  bool
	attempts  int
	delay     time.Duration
	timeout   time.Duration
	rate      int
}

// strategy 返回重试策略；attempts 与 delay 为零时分别取对应加载方式的默认值。
func (r loadRequest) strategy(logger xlog.Logger) xrx.RetryStrategy {
	attempts, delay := xfetch.LoadAttempts, xfetch.LoadDelay
	if r.withFetch {
		attempts, delay = xfetch.LoadWithFetchAttempts, xfetch.LoadWithFetchDelay
	}
	if r.attempts > 0 {
		attempts = r.attempts
	}
	if r.delay > 0 {
		delay = r.delay
	}
	s := xrx.NewRetryStrategy(attempts, delay)
	s.OnRetry = func(state xrx.RetryState, err error) {
		logger.Warn(context.Background(), "load failed, retrying",
			xlog.Attempt(state.AttemptsMade), xlog.Duration(state.Delay), xlog.Err(err))
	}
	return s
}

func cmdLoad(ctx context.Context, w io.Writer, logger xlog.Logger, req loadRequest) error {
	opts := []xfetch.Option{xfetch.WithLogger(logger)}
	if req.timeout > 0 {
		opts = append(opts, xfetch.WithTimeout(req.timeout))
	}
	if req.rate > 0 {
		limiter, err := xlimit.NewLocal(xlimit.PerSecond(req.rate), xlimit.WithLogger(logger))
		if err != nil {
			return err
		}
		opts = append(opts, xfetch.WithLimiter(limiter))
	}
	client := xfetch.NewClient(opts...)

	load := xfetch.Load[json.RawMessage]
	if req.withFetch {
		load = xfetch.LoadWithFetch[json.RawMessage]
	}
	loadOpts := []xfetch.LoadOption{xfetch.WithRetryStrategy(req.strategy(logger))}
	if req.failFast {
		loadOpts = append(loadOpts, xfetch.WithPermanentClientErrors())
	}
	src := xrx.Log(load(client, req.url, loadOpts...), logger, "load")

	var payload json.RawMessage
	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger), xrun.WithName("load")},
		xrun.Consume(src, func(v json.RawMessage) { payload = v }))
	if err != nil {
		return ignoreInterrupt(err)
	}
	return printPayload(w, payload)
}

// titled 只关心 title 字段的 JSON 对象。
type titled struct {
	Title string `json:"title"`
}

// printPayload 若 payload 是带 title 字段的对象数组则逐行打印 title，否则原样输出。
func printPayload(w io.Writer, payload json.RawMessage) error {
	var items []titled
	err := json.Unmarshal(payload, &items)
	if err != nil || len(items) == 0 || slices.ContainsFunc(items, func(it titled) bool { return it.Title == "" }) {
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}
	for _, it := range items {
		fmt.Fprintln(w, it.Title)
	}
	return nil
}

func cmdWatch(ctx context.Context, w io.Writer, logger xlog.Logger, path string) error {
	cfg, err := xconf.New(path)
	if err != nil {
		return err
	}
	printConfig(w, "loaded", cfg)

	err = xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger), xrun.WithName("watch")},
		xrun.Consume(xconf.WatchSource(cfg), func(r xconf.Reload) {
			if r.Err != nil {
				logger.Warn(context.Background(), "config reload failed", xlog.Err(r.Err))
				fmt.Fprintf(w, "reload failed: %v\n", r.Err)
				return
			}
			printConfig(w, "reloaded", r.Config)
		}))
	return ignoreInterrupt(err)
}

// printConfig 以 key = value 形式按键排序打印配置快照。
func printConfig(w io.Writer, event string, cfg xconf.Config) {
	k := cfg.Client()
	keys := k.Keys()
	slices.Sort(keys)
	fmt.Fprintf(w, "%s %s (%d keys)\n", event, cfg.Path(), len(keys))
	for _, key := range keys {
		fmt.Fprintf(w, "  %s = %v\n", key, k.Get(key))
	}
}

// ignoreInterrupt 把信号与上层取消视为正常退出。
func ignoreInterrupt(err error) error {
	if errors.Is(err, xrun.ErrSignal) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
