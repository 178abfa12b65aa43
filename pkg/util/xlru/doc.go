// Package xlru 基于 hashicorp/golang-lru/v2/expirable 提供带 TTL 的泛型 LRU 缓存，
// xfetch 用它缓存响应体。
//
// Get 过滤已过期条目但不刷新 TTL；Set 覆盖时刷新 TTL。
// TTL > 0 时底层库会启动清理 goroutine，使用完毕必须调用 Close。
// 淘汰回调在底层锁内执行，回调中不能再调用 Cache 的方法。
package xlru
