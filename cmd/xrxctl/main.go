// xrxctl 是 xrx 响应式流的命令行演示工具。
//
// 用法:
//
//	xrxctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件路径（YAML 或 JSON，可选）
//	    --log-level   日志级别 debug/info/warn/error（默认 warn）
//	    --log-format  日志格式 text/json（默认 text）
//	    --log-file    日志写入按大小轮转的文件，默认写 stderr
//
// 命令:
//
//	numbers        Of(1,5,10) 间隔发射，map(x*2) 后 filter(>4)
//	load <url>     带重试地加载 JSON，打印 title 列表或原始内容
//	watch <file>   打印配置文件的每次重载，直到 Ctrl+C
//
// 配置文件键:
//
//	retry.attempts  load 的重试预算
//	retry.delay     load 的重试间隔，如 "1500ms"
//	fetch.timeout   单次请求超时
//	fetch.rate      load 每秒请求上限
//	log.level / log.format / log.file
//
// 命令行参数优先于配置文件。
//
// 退出码:
//
//	0: 成功
//	1: 命令执行失败（如重试耗尽）
//	2: 参数错误
//
// 示例:
//
//	xrxctl numbers
//	xrxctl load --attempts 5 --delay 200ms https://example.com/movies.json
//	xrxctl -c xrx.yaml --log-level debug watch xrx.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xrxctl",
		Usage:   "xrx 响应式流命令行演示",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（YAML 或 JSON）",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: defaultLogLevel,
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
				Value: defaultLogFormat,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径，按大小轮转",
			},
		},
		Commands: createCommands(),
		// 退出码由 run() 统一映射，不让 urfave/cli 直接 os.Exit。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp()
	app.Writer = stdout
	app.ErrWriter = stderr

	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			fmt.Fprintf(stderr, "参数错误: %v\n", err)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
