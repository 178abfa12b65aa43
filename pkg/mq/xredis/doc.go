// Package xredis 把 Redis Pub/Sub 订阅暴露为 xrx.Source。
//
// 每次订阅 Source 都会建立一个独立的 PubSub 连接，取消订阅时关闭它：
//
//	s := xredis.Subscribe(client, "movies").Subscribe(xrx.Funcs[xredis.Message]{
//		Next: func(m xredis.Message) { fmt.Println(m.Payload) },
//	})
//	defer s.Unsubscribe()
//
// 订阅建立失败以 *xrx.ProducerError 结束，可以直接与 Retry 组合实现重连。
package xredis
