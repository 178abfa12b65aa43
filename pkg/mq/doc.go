// Package mq 提供消息相关的子包。
//
// 子包列表：
//   - xredis: Redis Pub/Sub 订阅，以 xrx.Source 形式发射消息
//
// 设计原则：
//   - 每次订阅独占一个底层连接，取消订阅即释放
//   - 连接失败以 ProducerError 结束，可交给 Retry 重新订阅
package mq
