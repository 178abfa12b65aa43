// Package xrun 基于 errgroup 运行一组服务，并在收到系统信号时协调关闭。
//
//	err := xrun.Run(ctx, nil, xrun.Consume(src, func(v int) { fmt.Println(v) }))
//	if errors.Is(err, xrun.ErrSignal) {
//		// Ctrl-C
//	}
//
// 任一服务返回错误都会取消其余服务；Wait 过滤普通的 context.Canceled，
// 但保留 Cancel(cause) 与信号设置的退出原因。
package xrun
