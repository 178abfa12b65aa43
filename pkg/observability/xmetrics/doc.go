// Package xmetrics 为订阅生命周期提供统一的观测接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr 三个最小接口，默认实现基于
// OpenTelemetry。xrx.Instrument 为每个订阅开启一个 Span，在终止或取消时结束。
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xfetch",
//		Operation: "load",
//		Kind:      xmetrics.KindClient,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标
//
//   - xrx.subscription.total：按 component / operation / status 计数
//   - xrx.subscription.duration：订阅时长（秒）
//
// status 取值 ok / error / cancelled。
package xmetrics
